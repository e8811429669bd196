package security

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// newJTI returns a new ULID string (26 chars) for use as a token id.
// ULIDs sort by issue time, which keeps jti values readable in audit trails.
func newJTI(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
