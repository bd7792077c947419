package model

import "github.com/rotisserie/eris"

// Sentinel errors shared across packages
var (
	ErrUnknownDomain     = eris.New("unknown domain")
	ErrInvalidField      = eris.New("invalid field")
	ErrInvalidDocument   = eris.New("invalid document")
	ErrUnsupportedFormat = eris.New("unsupported format")
	ErrJobNotFound       = eris.New("job not found")
	ErrRateLimited       = eris.New("rate limited")
)
