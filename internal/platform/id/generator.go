package id

import (
	crerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Generator creates opaque IDs used to correlate a batch run across logs,
// metrics and responses.
type Generator interface {
	NewID() (string, error)
}

type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() (string, error) {
	v, err := uuid.NewRandom()
	if err != nil {
		return "", crerr.Wrap(err, "generate uuid")
	}
	return v.String(), nil
}

// Static returns the same id every time. Tests use it to get stable run ids.
type Static string

func (s Static) NewID() (string, error) {
	return string(s), nil
}
