// Package schema describes the warehouse entities: which columns each source
// file must provide, how they are typed, their defaults, and the domain rules
// applied while cleaning.
package schema

import (
	"strings"

	"github.com/pkg/errors"
)

// Type is the logical type of a contract field.
type Type string

const (
	// TypeInt fields are coerced to int64.
	TypeInt Type = "int"
	// TypeText fields are trimmed strings.
	TypeText Type = "text"
)

// Field is a single column of an entity contract.
type Field struct {
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Required bool   `json:"required,omitempty"`

	// Default replaces a null value before coercion. nil means no default.
	Default any `json:"default,omitempty"`

	// Min/Max bound integer values; rows outside are dropped, not errored.
	Min *int64 `json:"min,omitempty"`
	Max *int64 `json:"max,omitempty"`
}

// Ranged reports whether the field carries a domain range.
func (f Field) Ranged() bool { return f.Min != nil || f.Max != nil }

// Reference declares that Field holds an id of Entity.
type Reference struct {
	Field  string
	Entity string
}

// Contract is the cleaning contract for one entity.
type Contract struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`

	// Key is the primary key column used for de-duplication.
	Key string `json:"key"`

	// References lists foreign ids; they are only checked when the run
	// enables referential filtering.
	References []Reference `json:"references,omitempty"`
}

// Columns returns field names in declaration order.
func (c Contract) Columns() []string {
	out := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = f.Name
	}
	return out
}

// Field looks up a field by name.
func (c Contract) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks the contract for internal consistency.
func (c Contract) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("schema: contract name must not be empty")
	}
	if len(c.Fields) == 0 {
		return errors.Errorf("schema: %s: at least one field is required", c.Name)
	}
	seen := make(map[string]struct{}, len(c.Fields))
	for _, f := range c.Fields {
		if f.Name == "" {
			return errors.Errorf("schema: %s: field with empty name", c.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return errors.Errorf("schema: %s: duplicate field %q", c.Name, f.Name)
		}
		seen[f.Name] = struct{}{}
		switch f.Type {
		case TypeInt, TypeText:
		default:
			return errors.Errorf("schema: %s.%s: unsupported type %q", c.Name, f.Name, f.Type)
		}
		if f.Ranged() && f.Type != TypeInt {
			return errors.Errorf("schema: %s.%s: range on non-integer field", c.Name, f.Name)
		}
	}
	if _, ok := seen[c.Key]; !ok {
		return errors.Errorf("schema: %s: key %q is not a field", c.Name, c.Key)
	}
	for _, r := range c.References {
		if _, ok := seen[r.Field]; !ok {
			return errors.Errorf("schema: %s: reference field %q is not a field", c.Name, r.Field)
		}
	}
	return nil
}
