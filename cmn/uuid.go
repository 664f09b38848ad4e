package cmn

import "github.com/google/uuid"

// GenUUID generates a 128-bit identifier rendered as lowercase hex, per the
// identity convention for TransferRequest, Bundle, and Metadata records.
//
// The teacher's own cmn.GenUUID builds human-readable IDs on top of
// teris-io/shortid; the spec mandates plain 128-bit UUIDs instead, so this
// generalizes the teacher's "one GenUUID helper, used everywhere" idiom onto
// google/uuid rather than the teacher's ID scheme (see DESIGN.md).
func GenUUID() string {
	return uuid.New().String()
}

// IsValidUUID reports whether s parses as a UUID.
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
