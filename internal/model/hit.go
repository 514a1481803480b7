package model

import "strings"

// FieldValue is one recovered field of a hit.
type FieldValue struct {
	// Field is the field type (first_name, dob, ...).
	Field string `json:"field"`

	// Transform is the transform the scheme applies to the field.
	Transform string `json:"transform"`

	// Raw is the representative raw value from the reference population.
	Raw string `json:"raw"`

	// Token is the token that entered the digest.
	Token string `json:"token"`
}

// Hit is an observed digest reversed by the dictionary attack.
//
// Design decision: Hits are typed records (scheme id plus field list)
// rather than formatted strings so that the profile consolidator never
// has to parse report text.
type Hit struct {
	// SchemeID identifies the scheme whose guess space produced the digest.
	SchemeID string `json:"scheme_id"`

	// Digest is the observed match-key.
	Digest string `json:"digest"`

	// Values is the recovered tuple in scheme field order.
	Values []FieldValue `json:"values"`
}

// Plaintext returns the concatenated tokens that hash to Digest.
func (h Hit) Plaintext() string {
	var b strings.Builder
	for _, v := range h.Values {
		b.WriteString(v.Token)
	}
	return b.String()
}

// Describe renders the recovered tuple as "field=raw" pairs.
func (h Hit) Describe() string {
	parts := make([]string, len(h.Values))
	for i, v := range h.Values {
		if v.Transform != "" && v.Transform != "identity" {
			parts[i] = v.Field + "=" + v.Token
			continue
		}
		parts[i] = v.Field + "=" + v.Raw
	}
	return strings.Join(parts, ", ")
}
