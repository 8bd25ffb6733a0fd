package model

import (
	"github.com/google/uuid"
)

// Package is a single evaluation job: one registered package whose test
// suite is to be run under the requested runtime. Immutable once produced
// by the registry; the result map is keyed by Name.
type Package struct {
	Name string
	UUID uuid.UUID
	Path string
}
