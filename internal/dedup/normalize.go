// Package dedup implements duplicate detection for a Reader library: URL
// normalization, title similarity, metadata quality scoring, two-phase
// grouping and removal, plus a CSV-oriented analysis path for post-export
// cleanup.
package dedup

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// trackingParams are stripped from query strings before URLs are compared.
// Matched case-insensitively; any utm_-prefixed key is stripped as well.
var trackingParams = map[string]struct{}{
	"fbclid":   {},
	"gclid":    {},
	"msclkid":  {},
	"ref":      {},
	"source":   {},
	"campaign": {},
	"medium":   {},
	"term":     {},
	"content":  {},
	"mc_cid":   {},
	"mc_eid":   {},
	"_ga":      {},
	"_gl":      {},
}

func isTrackingParam(key string) bool {
	key = strings.ToLower(key)
	if strings.HasPrefix(key, "utm_") {
		return true
	}
	_, ok := trackingParams[key]
	return ok
}

// NormalizeURL lower-cases the URL, strips tracking query parameters and the
// fragment, and re-emits surviving query pairs as sorted decoded key=value
// strings so that parameter order never affects equality. It is total: parse
// failures fall back to a lower-cased, trimmed copy of the input, and empty
// input yields "".
func NormalizeURL(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return ""
	}

	parsed, err := url.Parse(lowered)
	if err != nil {
		return lowered
	}

	query := ""
	if parsed.RawQuery != "" {
		values, _ := url.ParseQuery(parsed.RawQuery)
		pairs := make([]string, 0, len(values))
		for key, list := range values {
			if isTrackingParam(key) {
				continue
			}
			for _, value := range list {
				if value == "" {
					continue
				}
				pairs = append(pairs, key+"="+value)
			}
		}
		sort.Strings(pairs)
		query = strings.Join(pairs, "&")
	}

	normalized := fmt.Sprintf("%s://%s%s", parsed.Scheme, hostWithUser(parsed), parsed.EscapedPath())
	if query != "" {
		normalized += "?" + query
	}
	return normalized
}

// NormalizeURLSimple strips one scheme prefix and one trailing slash. No
// query handling; used for exact-match bucketing of exported rows.
func NormalizeURLSimple(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(normalized, "https://"):
		normalized = normalized[len("https://"):]
	case strings.HasPrefix(normalized, "http://"):
		normalized = normalized[len("http://"):]
	}
	return strings.TrimSuffix(normalized, "/")
}

// NormalizeURLAdvanced keeps only host+path, dropping scheme, query and
// fragment entirely. The most aggressive variant: it conflates distinct pages
// that differ only in query parameters, so its matches always need a second
// signal before deletion. Parse failures fall back to the simple variant.
func NormalizeURLAdvanced(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return ""
	}

	parsed, err := url.Parse(lowered)
	if err != nil {
		return NormalizeURLSimple(raw)
	}
	return strings.TrimSuffix(hostWithUser(parsed)+parsed.EscapedPath(), "/")
}

func hostWithUser(u *url.URL) string {
	if u.User != nil {
		return u.User.String() + "@" + u.Host
	}
	return u.Host
}
