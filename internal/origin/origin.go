package origin

import (
	"net/url"
	"strconv"
	"strings"
)

// Wildcard in an allow-list admits every origin that normalizes.
const Wildcard = "*"

// NormalizeHeader validates a browser Origin header and returns it as
// scheme://host[:port] with a lowercase scheme and host and the scheme's
// default port removed. The opaque origin "null" is returned as-is.
func NormalizeHeader(originHeader string) (string, bool) {
	trimmed := strings.TrimSpace(originHeader)
	switch trimmed {
	case "":
		return "", false
	case "null":
		return "null", true
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" || u.Opaque != "" {
		return "", false
	}
	if u.User != nil || u.RawQuery != "" || u.ForceQuery || u.Fragment != "" {
		return "", false
	}
	if u.Path != "" && u.Path != "/" {
		return "", false
	}

	scheme := strings.ToLower(u.Scheme)
	var defaultPort uint64
	switch scheme {
	case "http":
		defaultPort = 80
	case "https":
		defaultPort = 443
	default:
		return "", false
	}

	hostname := strings.ToLower(u.Hostname())
	if hostname == "" || strings.HasSuffix(u.Host, ":") || strings.ContainsAny(hostname, "% ") {
		return "", false
	}
	// Unbracketed IPv6 literals are not valid in an authority.
	if strings.Contains(hostname, ":") && !strings.HasPrefix(u.Host, "[") {
		return "", false
	}

	var port uint64
	if raw := u.Port(); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 16)
		if err != nil || n == 0 {
			return "", false
		}
		port = n
	}

	host := hostname
	if strings.Contains(hostname, ":") {
		host = "[" + hostname + "]"
	}
	if port != 0 && port != defaultPort {
		host += ":" + strconv.FormatUint(port, 10)
	}
	return scheme + "://" + host, true
}

// AllowList is an exact-match set of normalized origins.
//
// A request without an Origin header never matches, so browsers are the only
// clients an AllowList admits.
type AllowList struct {
	all     bool
	origins map[string]struct{}
}

// NewAllowList normalizes entries and drops the ones that are not valid
// origins. It returns the dropped entries so callers can warn about them.
func NewAllowList(entries []string) (*AllowList, []string) {
	l := &AllowList{origins: make(map[string]struct{}, len(entries))}
	var invalid []string
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if e == Wildcard {
			l.all = true
			continue
		}
		n, ok := NormalizeHeader(e)
		if !ok {
			invalid = append(invalid, e)
			continue
		}
		l.origins[n] = struct{}{}
	}
	return l, invalid
}

// Allow reports whether originHeader is on the list and returns its
// normalized form.
func (l *AllowList) Allow(originHeader string) (string, bool) {
	n, ok := NormalizeHeader(originHeader)
	if !ok || l == nil {
		return "", false
	}
	if l.all {
		return n, true
	}
	_, ok = l.origins[n]
	return n, ok
}

func (l *AllowList) HasWildcard() bool { return l != nil && l.all }

func (l *AllowList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.origins)
}
