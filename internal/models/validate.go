package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func resourceTypeRule() validation.Rule {
	allowed := make([]interface{}, len(ResourceTypes))
	for i, t := range ResourceTypes {
		allowed[i] = t
	}
	return validation.In(allowed...).Error("must be one of note, url, waystation, path")
}

// Validate validates the waystation and every nested mark and resource.
func (w Waystation) Validate() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.ID, validation.Required),
		validation.Field(&w.Marks),
		validation.Field(&w.Configuration),
	)
}

// Validate validates the configuration.
func (c Configuration) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Directory, validation.Required),
	)
}

// Validate validates the mark and its resources.
func (m Mark) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ID, validation.Required),
		validation.Field(&m.Line, validation.Min(0)),
		validation.Field(&m.Column, validation.Min(0)),
		validation.Field(&m.Resources),
	)
}

// Validate validates the resource.
func (r Resource) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required),
		validation.Field(&r.Type, validation.Required, resourceTypeRule()),
	)
}
