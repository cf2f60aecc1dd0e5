package validator

import "github.com/go-playground/validator/v10"

// Validator is the shared validation instance used for configuration
// structs and request payloads.
var Validator = validator.New()
