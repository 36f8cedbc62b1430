package proposal

import (
	"strings"

	"github.com/google/uuid"
)

// NewToken returns a 32 character hex token from a random (v4) UUID.
// That is 122 bits of randomness, far beyond what can be enumerated.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
