package normalize

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the canonical token for value: NFC-composed, trimmed,
// lowercased, with every rune that is not a letter or a digit removed.
// Normalize("") == "" and Normalize(Normalize(x)) == Normalize(x).
func Normalize(value string) string {
	if isToken(value) {
		return value
	}
	s := norm.NFC.String(strings.TrimSpace(value))
	// A Caser carries state, so each call gets its own.
	s = cases.Lower(language.Und).String(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// isToken reports whether value is already a lowercase ASCII alphanumeric
// token. Guess enumeration hashes millions of such tokens.
func isToken(value string) bool {
	for i := 0; i < len(value); i++ {
		c := value[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// Zip keeps only the decimal digits of value.
func Zip(value string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, value)
}

// soundexClass maps consonants to their Soundex digit.
var soundexClass = map[rune]byte{
	'b': '1', 'f': '1', 'p': '1', 'v': '1',
	'c': '2', 'g': '2', 'j': '2', 'k': '2', 'q': '2', 's': '2', 'x': '2', 'z': '2',
	'd': '3', 't': '3',
	'l': '4',
	'm': '5', 'n': '5',
	'r': '6',
}

// Soundex returns the 4 character phonetic code of value: the uppercased
// first letter followed by up to three class digits. Vowels and h, w, y
// contribute nothing, a digit equal to the last emitted digit is dropped,
// and the code is padded with zeros. Soundex("") == "".
func Soundex(value string) string {
	token := Normalize(value)
	if token == "" {
		return ""
	}
	runes := []rune(token)

	code := make([]byte, 0, 4)
	code = append(code, []byte(strings.ToUpper(string(runes[0])))...)
	var last byte
	digits := 0
	for _, r := range runes[1:] {
		d, ok := soundexClass[r]
		if !ok || d == last {
			continue
		}
		code = append(code, d)
		last = d
		digits++
		if digits == 3 {
			break
		}
	}
	for ; digits < 3; digits++ {
		code = append(code, '0')
	}
	return string(code)
}

// dateLayouts lists the accepted date of birth layouts, most common first.
var dateLayouts = []string{
	"2006-01-02",
	"20060102",
	"2006/01/02",
	"2006-01-02T15:04:05",
	"02.01.2006",
}

// Date returns value as a YYYYMMDD token, or "" when value is not a date in
// one of the accepted layouts. An RFC 3339 timestamp is truncated to its date.
func Date(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	if len(v) > len("2006-01-02T15:04:05") && v[10] == 'T' {
		v = v[:len("2006-01-02T15:04:05")]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("20060102")
		}
	}
	return ""
}
