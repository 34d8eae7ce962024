package cache

import (
	"net/url"
	"sort"
	"strings"

	"autotrader/internal/domain"
)

// Key normalises (kind, params) so logically identical requests share a
// slot: parameter names are lower-cased, values trimmed, and pairs sorted.
func Key(kind domain.SourceKind, params map[string]string) string {
	if len(params) == 0 {
		return string(kind)
	}

	pairs := make([]string, 0, len(params))
	for k, v := range params {
		name := strings.ToLower(strings.TrimSpace(k))
		if name == "" {
			continue
		}
		pairs = append(pairs, url.QueryEscape(name)+"="+url.QueryEscape(strings.TrimSpace(v)))
	}
	sort.Strings(pairs)

	var b strings.Builder
	b.WriteString(string(kind))
	b.WriteByte('|')
	b.WriteString(strings.Join(pairs, "&"))
	return b.String()
}
