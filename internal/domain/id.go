package domain

import "strings"

// NormalizeKey replaces every character outside [A-Za-z0-9_] with an
// underscore, so a MAC such as "aa:bb:cc" becomes "aa_bb_cc"
func NormalizeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// DeviceID joins a category prefix and a natural key into a device id
func DeviceID(prefix, key string) string {
	return prefix + "_" + NormalizeKey(key)
}
