package parser

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aluiziolira/go-site-audit/models"
)

var excludedPrefixes = []string{"javascript:", "mailto:", "tel:", "#"}

// assetExtensions lists targets that are never crawlable pages.
var assetExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".svg": {}, ".webp": {}, ".ico": {}, ".bmp": {}, ".tif": {}, ".tiff": {},
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {}, ".csv": {}, ".txt": {},
	".zip": {}, ".gz": {}, ".tgz": {}, ".tar": {}, ".rar": {}, ".7z": {}, ".dmg": {}, ".exe": {},
	".mp3": {}, ".wav": {}, ".mp4": {}, ".mov": {}, ".avi": {}, ".webm": {},
	".css": {}, ".js": {}, ".json": {}, ".xml": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {},
}

// IsExcludedHref reports whether href is non-navigational: a script, mail or
// phone link, or a same-page fragment.
func IsExcludedHref(href string) bool {
	lower := strings.ToLower(strings.TrimSpace(href))
	for _, prefix := range excludedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// ResolveHref resolves href against base and returns the canonical result.
func ResolveHref(base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	var abs *url.URL
	switch {
	case base != nil:
		abs = base.ResolveReference(ref)
	case ref.IsAbs():
		abs = ref
	default:
		return "", false
	}
	return Canonicalize(abs), true
}

// CanonicalURL parses raw and returns its canonical form. It fails for
// anything that is not an absolute URL.
func CanonicalURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", raw)
	}
	return Canonicalize(u), nil
}

// Canonicalize renders u as a frontier key: scheme and host lower-cased,
// fragment dropped, and an empty path written as "/". u is not modified.
func Canonicalize(u *url.URL) string {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = strings.ToLower(c.Host)
	c.Fragment = ""
	c.RawFragment = ""
	if c.Path == "" && c.Opaque == "" {
		c.Path = "/"
		c.RawPath = ""
	}
	return c.String()
}

// CrawlDomain returns the host that same-domain tests compare against.
func CrawlDomain(seedURL string) (string, error) {
	parsed, err := url.Parse(seedURL)
	if err != nil {
		return "", fmt.Errorf("parse seed url: %w", err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("seed url must include a host")
	}
	return strings.ToLower(parsed.Host), nil
}

// Classify decides whether link may enter the crawl frontier. Hosts must
// match exactly (case-insensitively); www and bare hosts are different
// domains.
func Classify(link models.LinkRecord, crawlDomain string) models.LinkClass {
	u, err := url.Parse(link.ResolvedURL)
	if err != nil {
		return models.External
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return models.External
	}
	if !strings.EqualFold(u.Host, crawlDomain) {
		return models.External
	}
	if IsAsset(u.Path) {
		return models.External
	}
	return models.SameDomain
}

// IsAsset reports whether the URL path points at a static file.
func IsAsset(urlPath string) bool {
	ext := strings.ToLower(path.Ext(urlPath))
	if ext == "" {
		return false
	}
	_, ok := assetExtensions[ext]
	return ok
}
