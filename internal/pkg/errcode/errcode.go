// Package errcode generates the short correlation codes shown to users and written to logs.
package errcode

import (
	"strings"

	"github.com/google/uuid"
)

const Prefix = "BP-"

// New returns a code like "BP-3F8A2C".
func New() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return Prefix + strings.ToUpper(hex[:6])
}
