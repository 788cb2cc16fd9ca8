// Package identity derives stable vertex keys from entity display names.
// The key is a pure function of the normalized name, so re-processing the
// same filing (or the same entity in a different filing) always addresses
// the same vertex.
package identity

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrEmptyName is returned for names that cannot identify anything.
// Callers skip the relationship instance, not the whole record.
var ErrEmptyName = errors.New("identity: empty entity name")

// placeholders are null-equivalent strings the extraction step sometimes
// emits instead of omitting a field.
var placeholders = map[string]struct{}{
	"-":    {},
	"--":   {},
	"无":    {},
	"不适用":  {},
	"none": {},
	"null": {},
	"n/a":  {},
}

// Resolve maps a display name to its fixed-width vertex key: the md5 hex
// digest of the whitespace-trimmed name. Deterministic across processes
// and restarts; no I/O.
func Resolve(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrEmptyName
	}
	if _, bad := placeholders[strings.ToLower(trimmed)]; bad {
		return "", ErrEmptyName
	}
	sum := md5.Sum([]byte(trimmed))
	return hex.EncodeToString(sum[:]), nil
}
