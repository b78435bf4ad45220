package storage

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"strings"
)

// NormalizeLink canonicalizes an article link before hashing: surrounding
// whitespace and the fragment are dropped, scheme and host are lowercased.
// Links that do not parse are used trimmed as-is.
func NormalizeLink(link string) string {
	link = strings.TrimSpace(link)
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return link
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// Fingerprint is the cache key of a link.
func Fingerprint(link string) string {
	sum := sha256.Sum256([]byte(NormalizeLink(link)))
	return fmt.Sprintf("%x", sum)
}
