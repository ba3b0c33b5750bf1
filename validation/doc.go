// Package validation checks configuration structs and request parameters.
//
// Struct tags are evaluated with go-playground/validator:
//
//	type ServerConfig struct {
//	    Addr string `mapstructure:"addr" validate:"required,hostname_port"`
//	}
//	err := validation.Validate(cfg)
//
// Ad-hoc parameters are collected with a Validator:
//
//	err := validation.New().
//	    Pattern("worker", name, `^[a-z][a-z0-9-]*$`).
//	    OneOf("codec", codec, []string{"json", "cbor"}).
//	    Err()
//
// Both report an INVALID_INPUT AppError whose "fields" detail lists every
// failing field.
package validation
