// Package urlcanon canonicalizes URLs for use as item identities: it
// lowercases scheme and host, strips known tracking parameters, and
// delegates to media-service plugins (YouTube, Vimeo, ...) that recognize
// their own canonical form.
package urlcanon

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParams is the allowlist of query parameters stripped during
// canonicalization, regardless of domain. Domain-specific stripping can be
// layered on by registering a MediaCanonicalizer.
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true, "utm_name": true,
	"fbclid": true, "gclid": true, "mc_cid": true, "mc_eid": true,
	"ref": true, "ref_src": true, "igshid": true,
}

// MediaCanonicalizer recognizes URLs belonging to a specific media service
// (YouTube, Vimeo, ...) and reduces them to a canonical form plus the
// service's native media ID.
type MediaCanonicalizer interface {
	// Match reports whether this canonicalizer claims the URL, returning its
	// canonical form and media ID if so.
	Match(u *url.URL) (canonical string, mediaID string, ok bool)
}

var plugins []MediaCanonicalizer

// Register adds a media canonicalizer to the plugin chain consulted by
// Canonicalize. The first plugin to match a URL wins.
func Register(c MediaCanonicalizer) {
	plugins = append(plugins, c)
}

// Canonicalize reduces a URL to a canonical form: lowercased scheme/host,
// tracking parameters stripped, query parameters sorted for determinism.
// It is idempotent: Canonicalize(Canonicalize(u)) == Canonicalize(u). If a
// registered media plugin matches, its canonical form is returned instead.
func Canonicalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}

	for _, p := range plugins {
		if canon, _, ok := p.Match(u); ok {
			return canon, nil
		}
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	q := u.Query()
	for k := range q {
		if trackingParams[strings.ToLower(k)] {
			q.Del(k)
		}
	}
	sortedQuery := make(url.Values, len(q))
	for k, v := range q {
		sortedQuery[k] = v
	}
	u.RawQuery = encodeSortedQuery(sortedQuery)

	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	u.Fragment = ""

	return u.String(), nil
}

func encodeSortedQuery(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		for j, v := range q[k] {
			if i > 0 || j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// MediaIDFor returns the media ID a registered plugin assigns to the URL,
// if any plugin claims it.
func MediaIDFor(raw string) (mediaID string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	for _, p := range plugins {
		if _, id, matched := p.Match(u); matched {
			return id, true
		}
	}
	return "", false
}
