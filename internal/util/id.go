package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a prefixed identifier such as "sty_59f0c1..." so a bare
// ID in a log line or payload still says which entity it names. An
// empty prefix yields the plain 32-char hex form, used for token
// material that never leaves the auth layer.
func NewID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return raw
	}
	return prefix + "_" + raw
}
