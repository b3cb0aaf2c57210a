package stac

import (
	"net/url"
	"regexp"
)

var collectionPathPattern = regexp.MustCompile(`/collections/([^/]+)`)

// CollectionIDFromHref extracts the path segment following /collections/ in
// href. It reports false when href has no such segment.
func CollectionIDFromHref(href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	m := collectionPathPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return "", false
	}
	return m[1], true
}
