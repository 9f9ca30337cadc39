// Package negotiate picks the best output Format for an incoming Accept
// header against the set of formats a size profile actually has on offer.
// Parsing builds on mime.ParseMediaType; q-value and specificity
// comparison follow RFC 9110 section 12.5.1.
package negotiate

import (
	"mime"
	"sort"
	"strconv"
	"strings"

	"github.com/shrinkcache/shrinkcache/core"
)

// candidate is one parsed Accept header entry.
type candidate struct {
	mediaType   string // "image/webp", "image/*", "*/*"
	q           float64
	specificity int // 2 = concrete type/subtype, 1 = type/*, 0 = */*
	order       int // input order, for stable tie-breaking
}

// Best returns the most preferred Format among offered (in configured
// order) for the given Accept header value. Absent Accept (or one that
// fails to parse into any candidate) is "no preference" and defers to
// def. An explicit "*/*" candidate is likewise "no preference". But an
// explicit, non-wildcard Accept that names only types absent from
// offered yields core.FormatUnknown, and the caller falls through to
// serving the source as-is rather than substituting the default format.
func Best(accept string, offered []core.Format, def core.Format) core.Format {
	if strings.TrimSpace(accept) == "" {
		return firstOffered(offered, def)
	}

	candidates := parseAccept(accept)
	if len(candidates) == 0 {
		return firstOffered(offered, def)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].q != candidates[j].q {
			return candidates[i].q > candidates[j].q
		}
		if candidates[i].specificity != candidates[j].specificity {
			return candidates[i].specificity > candidates[j].specificity
		}
		return candidates[i].order < candidates[j].order
	})

	for _, c := range candidates {
		if c.q <= 0 {
			continue
		}
		if c.mediaType == "*/*" {
			return firstOffered(offered, def)
		}
		if strings.HasSuffix(c.mediaType, "/*") {
			// A subtype wildcard expresses no preference within the type;
			// the configured default wins when it qualifies.
			if mediaTypeMatches(c.mediaType, def.MediaType()) && contains(offered, def) {
				return def
			}
		}
		for _, f := range offered {
			if mediaTypeMatches(c.mediaType, f.MediaType()) {
				return f
			}
		}
	}
	return core.FormatUnknown
}

func contains(offered []core.Format, f core.Format) bool {
	for _, cand := range offered {
		if cand == f {
			return true
		}
	}
	return false
}

func firstOffered(offered []core.Format, def core.Format) core.Format {
	for _, f := range offered {
		if f == def {
			return def
		}
	}
	if len(offered) > 0 {
		return offered[0]
	}
	return def
}

func mediaTypeMatches(pattern, concrete string) bool {
	if pattern == concrete {
		return true
	}
	patType := strings.SplitN(pattern, "/", 2)
	concType := strings.SplitN(concrete, "/", 2)
	if len(patType) == 2 && len(concType) == 2 && patType[1] == "*" {
		return patType[0] == concType[0]
	}
	return false
}

func parseAccept(accept string) []candidate {
	parts := strings.Split(accept, ",")
	out := make([]candidate, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		mt, params, err := mime.ParseMediaType(p)
		if err != nil {
			continue
		}
		q := 1.0
		if v, ok := params["q"]; ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				q = parsed
			}
		}
		spec := 2
		if strings.HasSuffix(mt, "/*") {
			spec = 1
		}
		if mt == "*/*" {
			spec = 0
		}
		out = append(out, candidate{mediaType: mt, q: q, specificity: spec, order: i})
	}
	return out
}
