package scheme

import "fmt"

// ons marks a scheme as ONS mk<n> and accepts the ONS_MK<n> and mk_ons_<n>
// headers other tools write for it.
func ons(n int) Option {
	return func(s *Scheme) {
		s.family = FamilyONS
		s.aliases = append(s.aliases, fmt.Sprintf("ons_mk%d", n), fmt.Sprintf("mk_ons_%d", n))
	}
}

// onsSchemes are the ONS match-keys mk1 to mk13.
var onsSchemes = []*Scheme{
	MustDefine("mk1", []FieldSpec{Plain(FirstName), Plain(LastName), Plain(DOB)}, ons(1)),
	MustDefine("mk2", []FieldSpec{Plain(FirstInitial), Plain(LastName), Plain(DOB)}, ons(2)),
	MustDefine("mk3", []FieldSpec{Plain(FirstName), Plain(Zip), Plain(DOB)}, ons(3)),
	MustDefine("mk4", []FieldSpec{On(LastName, SoundexCode()), Plain(DOB)}, ons(4)),
	MustDefine("mk5", []FieldSpec{On(FirstName, Prefix(3)), Plain(LastName), Plain(YearOfBirth)}, ons(5)),
	MustDefine("mk6", []FieldSpec{Plain(FirstName), On(LastName, SoundexCode()), Plain(DOB)}, ons(6)),
	MustDefine("mk7", []FieldSpec{Plain(FirstInitial), On(LastName, SoundexCode()), Plain(DOB)}, ons(7)),
	MustDefine("mk8", []FieldSpec{Plain(FirstName), Plain(LastName), On(DOB, Prefix(6))},
		ons(8), WithLabel("first_name + last_name + dob year-month")),
	MustDefine("mk9", []FieldSpec{Plain(FirstInitial), On(LastName, First()), Plain(YearOfBirth)}, ons(9)),
	MustDefine("mk10", []FieldSpec{Plain(LastName), Plain(Zip), Plain(YearOfBirth)}, ons(10)),
	MustDefine("mk11", []FieldSpec{Plain(FirstName), Plain(YearOfBirth), On(Zip, Prefix(3))}, ons(11)),
	MustDefine("mk12", []FieldSpec{On(FirstName, SoundexCode()), Plain(LastName), Plain(DOB)}, ons(12)),
	MustDefine("mk13", []FieldSpec{Plain(LastName), Plain(YearOfBirth), On(Zip, Prefix(3))}, ons(13)),
}

// randallSchemes are the Randall match-keys mk_randall_1 to mk_randall_10.
var randallSchemes = []*Scheme{
	MustDefine("mk_randall_1", []FieldSpec{Plain(FirstName), Plain(LastName), Plain(DOB)}, WithFamily(FamilyRandall)),
	MustDefine("mk_randall_2", []FieldSpec{Plain(FirstName), Plain(Zip), Plain(YearOfBirth)}, WithFamily(FamilyRandall)),
	MustDefine("mk_randall_3", []FieldSpec{Plain(LastName), Plain(DOB), Plain(Gender)}, WithFamily(FamilyRandall)),
	MustDefine("mk_randall_4", []FieldSpec{Plain(FirstName), Plain(Gender), Plain(Zip)}, WithFamily(FamilyRandall)),
	MustDefine("mk_randall_5", []FieldSpec{Plain(FirstName), Plain(LastName), Plain(Email)}, WithFamily(FamilyRandall)),
	MustDefine("mk_randall_6", []FieldSpec{Plain(LastName), Plain(YearOfBirth), Plain(Zip)}, WithFamily(FamilyRandall)),
	MustDefine("mk_randall_7", []FieldSpec{Plain(FirstInitial), Plain(LastName), Plain(DOB)}, WithFamily(FamilyRandall)),
	MustDefine("mk_randall_8", []FieldSpec{Plain(FirstName), Plain(Address), Plain(Zip)}, WithFamily(FamilyRandall)),
	MustDefine("mk_randall_9", []FieldSpec{Plain(FirstName), Plain(DOB), Plain(Email)}, WithFamily(FamilyRandall)),
	MustDefine("mk_randall_10", []FieldSpec{Plain(LastName), Plain(Gender), Plain(Email)}, WithFamily(FamilyRandall)),
}

// Builtin returns a registry with the ONS schemes followed by the Randall
// schemes.
func Builtin() *Registry {
	all := make([]*Scheme, 0, len(onsSchemes)+len(randallSchemes))
	all = append(all, onsSchemes...)
	all = append(all, randallSchemes...)
	r, err := NewRegistry(all...)
	if err != nil {
		panic(err) // built-in ids are unique
	}
	return r
}
