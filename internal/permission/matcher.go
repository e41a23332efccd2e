package permission

import "strings"

// NormalizePath canonicalizes a request path for matching: strips query and
// fragment, forces a leading slash, strips the trailing slash except for the
// root path, and lowercases. NormalizePath is idempotent.
func NormalizePath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if i := strings.IndexByte(path, '#'); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return strings.ToLower(path)
}

// Match reports whether path and method are covered by perms. The scan is
// first-match-wins in the given order: for the first permission whose URL
// matches exactly (case-insensitive), or as a wildcard prefix (trailing "*"
// stripped), or as a plain prefix, the method check decides the verdict
// immediately. There is no specificity ranking; later, more specific entries
// never override an earlier match. An empty AllowedMethods list allows any
// method. No matching permission means deny.
func Match(perms []MenuPermission, path, method string) bool {
	path = NormalizePath(path)
	for _, p := range perms {
		url := strings.ToLower(p.URL)
		if url == "" {
			continue
		}
		matched := path == url ||
			(p.IsWildcard && strings.HasPrefix(path, strings.TrimSuffix(url, "*"))) ||
			strings.HasPrefix(path, url)
		if !matched {
			continue
		}
		return methodAllowed(p.AllowedMethods, method)
	}
	return false
}

func methodAllowed(allowed []string, method string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, m := range allowed {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}
