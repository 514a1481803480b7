package scheme

import "fmt"

// Definition is the declarative form of a scheme as written in the YAML
// config file:
//
//	schemes:
//	  - id: mk_custom_1
//	    label: first name + zip3
//	    column: custom1
//	    aliases: [custom_1]
//	    fields:
//	      - field: first_name
//	      - field: zip
//	        transform: prefix(3)
type Definition struct {
	ID      string            `yaml:"id"`
	Family  string            `yaml:"family,omitempty"`
	Label   string            `yaml:"label,omitempty"`
	Column  string            `yaml:"column,omitempty"`
	Aliases []string          `yaml:"aliases,omitempty"`
	Fields  []FieldDefinition `yaml:"fields"`
}

// FieldDefinition is one field of a Definition.
type FieldDefinition struct {
	Field     string `yaml:"field"`
	Transform string `yaml:"transform,omitempty"`
}

// Scheme converts the definition into an immutable Scheme.
func (d Definition) Scheme() (*Scheme, error) {
	fields := make([]FieldSpec, 0, len(d.Fields))
	for _, fd := range d.Fields {
		t, err := ParseTransform(fd.Transform)
		if err != nil {
			return nil, fmt.Errorf("scheme %s: %w", d.ID, err)
		}
		fields = append(fields, On(Field(fd.Field), t))
	}

	family := FamilyCustom
	if d.Family != "" {
		family = Family(d.Family)
	}
	return Define(d.ID, fields, WithFamily(family), WithLabel(d.Label),
		WithColumn(d.Column), WithAliases(d.Aliases...))
}

// DefinitionOf returns the declarative form of s.
func DefinitionOf(s *Scheme) Definition {
	d := Definition{
		ID:      s.ID(),
		Family:  string(s.Family()),
		Label:   s.label,
		Column:  s.Column(),
		Aliases: s.Aliases(),
	}
	for _, fs := range s.fields {
		fd := FieldDefinition{Field: string(fs.Field)}
		if !fs.Transform.IsIdentity() {
			fd.Transform = fs.Transform.String()
		}
		d.Fields = append(d.Fields, fd)
	}
	return d
}
