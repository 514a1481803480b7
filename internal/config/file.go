package config

import (
	"fmt"

	"github.com/nao1215/mkattack/internal/scheme"
)

// Defaults are the option defaults a config file may set.
type Defaults struct {
	TopK          int    `yaml:"top_k,omitempty"`
	MaxGuessSpace int    `yaml:"max_guess_space,omitempty"`
	MinOverlap    int    `yaml:"min_overlap,omitempty"`
	MinCount      int    `yaml:"min_count,omitempty"`
	Workers       int    `yaml:"workers,omitempty"`
	Mode          string `yaml:"mode,omitempty"`
}

// File represents the structure of the .mkattack configuration file.
type File struct {
	// Defaults overrides the built-in option defaults.
	Defaults Defaults `yaml:"defaults,omitempty"`

	// Schemes are custom schemes appended to the registry.
	Schemes []scheme.Definition `yaml:"schemes,omitempty"`

	// SkipBuiltin drops the ONS and Randall schemes, leaving only Schemes.
	SkipBuiltin bool `yaml:"skip_builtin,omitempty"`

	// Select is the scheme allow-list used when --scheme is not given.
	Select []string `yaml:"select,omitempty"`

	// Genders maps first names to a gender for profile inference.
	Genders map[string]string `yaml:"genders,omitempty"`
}

// Registry builds the scheme registry described by the config: the
// built-in schemes unless the file skips them, then the file's custom
// schemes, narrowed to Families and Schemes.
func (c *Config) Registry() (*scheme.Registry, error) {
	reg := scheme.Builtin()
	if c.File != nil {
		if c.File.SkipBuiltin {
			reg, _ = scheme.NewRegistry()
		}
		custom := make([]*scheme.Scheme, 0, len(c.File.Schemes))
		for _, d := range c.File.Schemes {
			s, err := d.Scheme()
			if err != nil {
				return nil, fmt.Errorf("config file: %w", err)
			}
			custom = append(custom, s)
		}
		var err error
		if reg, err = reg.Merge(custom...); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}

	if len(c.Families) > 0 {
		var kept []*scheme.Scheme
		for _, f := range c.Families {
			kept = append(kept, reg.Family(scheme.Family(f)).All()...)
		}
		filtered, err := scheme.NewRegistry(kept...)
		if err != nil {
			return nil, err
		}
		reg = filtered
	}

	reg, err := reg.Select(c.Schemes)
	if err != nil {
		return nil, err
	}
	if reg.Len() == 0 {
		return nil, ErrNoSchemes
	}
	return reg, nil
}

// Genders returns the config file's name to gender table, nil when empty.
func (c *Config) Genders() map[string]string {
	if c.File == nil || len(c.File.Genders) == 0 {
		return nil
	}
	return c.File.Genders
}
