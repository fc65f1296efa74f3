package identity

import "strings"

// maxHandleLen bounds lookups; longer inputs cannot match a stored handle.
const maxHandleLen = 320

// NormalizeHandle performs case-insensitive canonicalization of a login
// handle (username or email).
func NormalizeHandle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
