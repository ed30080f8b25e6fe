package graph

import "strings"

// NormalizeEndpoint canonicalizes an API path for cross-tier matching:
// lowercase, no scheme/host, no query string, no surrounding slashes and
// no leading "api/" segments. It is idempotent.
func NormalizeEndpoint(endpoint string) string {
	s := strings.ToLower(strings.TrimSpace(endpoint))
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
		if j := strings.IndexByte(s, '/'); j >= 0 {
			s = s[j:]
		} else {
			s = ""
		}
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, "/")
	for strings.HasPrefix(s, "api/") {
		s = strings.TrimLeft(s[len("api/"):], "/")
	}
	return s
}

// endpointsMatch compares two normalized endpoints by equality or
// containment either way. Empty values never match.
func endpointsMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}
