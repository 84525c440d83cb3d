package project

import (
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

// TalendID generates a Talend-style XMI identifier: an underscore followed
// by the url-safe base64 form of 16 random bytes, with padding stripped and
// the characters XMI rejects mapped away (+→p, /→s, -→m).
func TalendID() string {
	return talendIDFrom(uuid.New())
}

// talendIDFrom derives the identifier from a given UUID, so tests can pin
// the randomness.
func talendIDFrom(id uuid.UUID) string {
	b64 := base64.URLEncoding.EncodeToString(id[:])

	b64 = strings.TrimRight(b64, "=")
	b64 = strings.ReplaceAll(b64, "+", "p")
	b64 = strings.ReplaceAll(b64, "/", "s")
	b64 = strings.ReplaceAll(b64, "-", "m")

	return "_" + b64
}
