// internal/discovery/sanitize.go
package discovery

import "strings"

// Sanitize makes s safe as a topic level and identifier: every run of
// characters outside [A-Za-z0-9] becomes a single '_', and leading or
// trailing separators are dropped.
//
//	"192.168.1.100" -> "192_168_1_100"
//	"fe80::1"       -> "fe80_1"
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAlnum(c) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteByte(c)
			continue
		}
		pending = true
	}
	return b.String()
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// NodeID is the sanitized device identity shared by every discovery topic
// and unique id of one meter.
func NodeID(host string) string {
	return "sdm120_" + Sanitize(host)
}
