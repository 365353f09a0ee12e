package compile

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/jsonexporter/json-exporter/pkg/config"
)

// pathPlaceholderRE matches ${paths.<key>} tokens inside a url template.
var pathPlaceholderRE = regexp.MustCompile(`\$\{paths\.([A-Za-z0-9_]+)\}`)

// resolveURL flattens an endpoint's url_parts into its url template: every
// ${paths.KEY} token is substituted with url_parts.paths[KEY] (a compile
// error if the key is undefined), and every url_parts.params entry is
// appended to the query string as params[KEY].name=params[KEY].value
// (skipped if its value is empty). Both maps are static, declared directly
// in the configuration, so this resolves once at compile time rather than
// per scrape.
func resolveURL(tmpl string, parts config.URLParts) (string, error) {
	var missing string
	substituted := pathPlaceholderRE.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := pathPlaceholderRE.FindStringSubmatch(match)[1]
		v, ok := parts.Paths[key]
		if !ok {
			missing = key
			return match
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("url %q references undefined url_parts.paths key %q", tmpl, missing)
	}

	if len(parts.Params) == 0 {
		return substituted, nil
	}

	u, err := url.Parse(substituted)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", substituted, err)
	}
	q := u.Query()
	for _, p := range parts.Params {
		if p.Value == "" {
			continue
		}
		q.Set(p.Name, p.Value)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
