package search

import (
	"net/url"
	"strings"
)

var knownSources = []struct {
	domain string
	name   string
}{
	{"reddit.com", "Reddit"},
	{"news.ycombinator.com", "Hacker News"},
	{"twitter.com", "X/Twitter"},
	{"x.com", "X/Twitter"},
	{"github.com", "GitHub"},
	{"medium.com", "Medium"},
	{"dev.to", "Dev.to"},
	{"stackoverflow.com", "Stack Overflow"},
}

// SourceFromURL names the platform a URL belongs to. Unknown hosts are
// returned bare, without "www."; unparseable URLs are "Web".
func SourceFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Hostname() == "" {
		return "Web"
	}
	host := strings.ToLower(u.Hostname())
	for _, s := range knownSources {
		if host == s.domain || strings.HasSuffix(host, "."+s.domain) {
			return s.name
		}
	}
	return strings.TrimPrefix(host, "www.")
}
