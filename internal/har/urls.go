package har

import (
	"fmt"
	"net/url"
	"strings"
)

// Options filter which archived requests become load targets.
type Options struct {
	// Methods lists the request methods to keep (empty = all).
	Methods []string
	// IncludeHosts keeps only these hosts when set.
	IncludeHosts []string
	// ExcludeHosts drops these hosts.
	ExcludeHosts []string
	// ExcludeStatic drops scripts, stylesheets, images and fonts.
	ExcludeStatic bool
}

// DefaultOptions keeps GET requests for non-static resources.
func DefaultOptions() Options {
	return Options{
		Methods:       []string{"GET"},
		ExcludeStatic: true,
	}
}

// URLs returns the request URLs of matching entries in archive order.
// Duplicates are preserved so hot resources keep their weight in the cycle.
func URLs(archive *HAR, opts Options) ([]string, error) {
	if archive == nil || archive.Log == nil {
		return nil, fmt.Errorf("HAR is nil or has nil Log")
	}

	var urls []string
	for _, entry := range archive.Log.Entries {
		if entry == nil || entry.Request == nil {
			continue
		}
		if !matches(entry.Request, opts) {
			continue
		}
		urls = append(urls, entry.Request.URL)
	}
	return urls, nil
}

func matches(req *Request, opts Options) bool {
	if strings.TrimSpace(req.URL) == "" {
		return false
	}
	if len(opts.Methods) > 0 && !containsFold(opts.Methods, req.Method) {
		return false
	}

	parsed, err := url.Parse(req.URL)
	if err != nil {
		return false
	}
	if len(opts.IncludeHosts) > 0 && !containsFold(opts.IncludeHosts, parsed.Host) {
		return false
	}
	if containsFold(opts.ExcludeHosts, parsed.Host) {
		return false
	}
	if opts.ExcludeStatic && isStaticAsset(parsed.Path) {
		return false
	}
	return true
}

func containsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), value) {
			return true
		}
	}
	return false
}

var staticExtensions = []string{
	".js", ".css", ".png", ".jpg", ".jpeg", ".gif", ".svg",
	".woff", ".woff2", ".ttf", ".eot", ".ico", ".map",
}

func isStaticAsset(path string) bool {
	lowerPath := strings.ToLower(path)
	for _, ext := range staticExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			return true
		}
	}
	return false
}
