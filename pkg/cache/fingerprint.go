package cache

import (
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint identifies a query string + parameter set.
type Fingerprint uint64

// FingerprintQuery hashes a query string together with its parameter
// values. The query text is hashed exactly as given; no normalization is
// applied. Parameters are sorted by name first so key order never affects
// the fingerprint.
func FingerprintQuery(normalizedQuery string, params map[string]string) Fingerprint {
	h := xxhash.New()
	_, _ = h.WriteString(normalizedQuery)

	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = h.WriteString(name)
		_, _ = h.WriteString("=")
		_, _ = h.WriteString(params[name])
		_, _ = h.WriteString(";")
	}
	return Fingerprint(h.Sum64())
}
