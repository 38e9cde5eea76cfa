package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New returns a fresh ULID. The timestamp prefix keeps identifiers roughly
// ordered by creation, which makes user and transaction keys stable to sort.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
