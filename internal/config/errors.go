package config

import "errors"

// ErrUnknownConfigField classifies strict YAML parse failures caused by an
// unrecognized key. Use errors.Is(err, ErrUnknownConfigField) rather than
// string-matching the underlying yaml.v3 error.
var ErrUnknownConfigField = errors.New("unknown config field")

// ErrInvalidFairnessMode is returned when fairness_mode is neither "strict"
// nor "lenient".
var ErrInvalidFairnessMode = errors.New("invalid fairness_mode")

// ErrNegativeLimit is returned when a limit field that must be >= 0 is
// configured negative.
var ErrNegativeLimit = errors.New("limit must not be negative")
