package parser

import "strings"

func hasHTTPScheme(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// splitURL separates an absolute URL into "scheme//host" and the remaining
// path. Relative URLs come back with an empty base and a leading slash.
func splitURL(raw string) (base, path string) {
	if !hasHTTPScheme(raw) {
		if !strings.HasPrefix(raw, "/") {
			return "", "/" + raw
		}
		return "", raw
	}

	parts := strings.SplitN(raw, "/", 4)
	if parts[2] != "" {
		base = parts[0] + "//" + parts[2]
	}
	if len(parts) == 4 {
		return base, "/" + parts[3]
	}
	return base, "/"
}
