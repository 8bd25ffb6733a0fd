package model

import (
	"errors"
)

var (
	ErrVersionNotFound  = errors.New("requested version not found")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrWarmup           = errors.New("sandbox warm-up failed")
)
