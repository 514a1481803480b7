package model

import "slices"

// Profile attribute names.
const (
	AttrFirstName   = "first_name"
	AttrLastName    = "last_name"
	AttrYearOfBirth = "year_of_birth"
	AttrDOB         = "dob"
	AttrGender      = "gender"
	AttrEmail       = "email"
	AttrZip         = "zip"
	AttrAddress     = "address"
)

// ProfileAttributes lists the attribute names in report order.
var ProfileAttributes = []string{
	AttrFirstName, AttrLastName, AttrYearOfBirth, AttrDOB,
	AttrGender, AttrEmail, AttrZip, AttrAddress,
}

// Conflict records a differing value for an attribute a profile already has.
type Conflict struct {
	ProfileKey string `json:"profile_key"`
	Attribute  string `json:"attribute"`
	Old        string `json:"old"`
	New        string `json:"new"`
	SchemeID   string `json:"scheme_id"`
}

// Profile is an identity consolidated from hits across schemes.
type Profile struct {
	// Key is derived from the normalized first name, last name, year of
	// birth and, once known, date of birth.
	Key string `json:"key"`

	// Attributes maps attribute names to recovered values.
	Attributes map[string]string `json:"attributes"`

	// Digest is the first digest that contributed to the profile.
	Digest string `json:"digest"`

	// Schemes lists the schemes that contributed, in first-seen order.
	Schemes []string `json:"schemes"`

	// GenderInferred is true when gender came from a name lookup rather
	// than from a hit.
	GenderInferred bool `json:"gender_inferred,omitempty"`

	Conflicts []Conflict `json:"conflicts,omitempty"`
}

// Get returns an attribute value.
func (p *Profile) Get(attr string) string {
	return p.Attributes[attr]
}

// AttributeCount returns the number of non-empty attributes.
func (p *Profile) AttributeCount() int {
	n := 0
	for _, v := range p.Attributes {
		if v != "" {
			n++
		}
	}
	return n
}

// AddScheme records a contributing scheme once.
func (p *Profile) AddScheme(id string) {
	if !slices.Contains(p.Schemes, id) {
		p.Schemes = append(p.Schemes, id)
	}
}

// ProfileReport is the outcome of a consolidation stage.
type ProfileReport struct {
	Profiles []Profile `json:"profiles"`

	// Total is the number of profiles.
	Total int `json:"total"`

	// Merged counts hits folded into a profile.
	Merged int `json:"merged"`

	// Incomplete counts hits without first name, last name and year.
	Incomplete int `json:"incomplete"`

	// Unrecognized counts hits whose shape did not match their scheme.
	Unrecognized int `json:"unrecognized"`

	// Conflicts counts all logged conflicts.
	Conflicts int `json:"conflicts"`
}
