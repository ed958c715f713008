// Package images merges candidate image URLs into a staging item's ordered
// collection without reintroducing duplicates, and scores candidate relevance.
package images

import (
	"net/url"
	"strings"

	"istanbul-explorer/pkg/utils"
)

// Size and quality query parameters that CDNs vary per rendition of the same
// underlying photo. Two URLs differing only in these are the same image.
var strippedParams = []string{"w", "h", "fit", "crop", "q", "auto", "cs", "fm", "ixlib", "ixid"}

// Normalize reduces an image URL to its canonical form used as the duplicate
// key: known size/quality params stripped, a single trailing slash removed,
// fragment dropped. Malformed URLs are returned unchanged; normalization is
// best-effort and never fails.
func Normalize(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || u.Scheme == "" {
		return raw
	}

	q := u.Query()
	for _, p := range strippedParams {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.Fragment = ""
	return u.String()
}

// MergeResult reports the outcome of a merge.
type MergeResult struct {
	Images    []string // final ordered collection
	Added     int      // candidates accepted this call
	Shortfall int      // requested minus added, when candidates ran out
}

// MergeAppend merges candidates into existing, keeping insertion order.
// Candidates whose normalized form matches an existing URL or an
// already-accepted candidate are skipped; at most requested candidates are
// accepted. Finding fewer than requested is not an error - the caller logs
// the shortfall. Pre-existing duplicates inside existing are tolerated and
// not retroactively cleaned.
func MergeAppend(existing, candidates []string, requested int) MergeResult {
	if requested < 0 {
		requested = 0
	}

	seen := make(map[string]struct{}, len(existing)+requested)
	for _, u := range existing {
		seen[Normalize(u)] = struct{}{}
	}

	merged := append([]string(nil), existing...)
	added := 0
	for _, c := range candidates {
		if added >= requested {
			break
		}
		key := Normalize(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, c)
		added++
	}

	return MergeResult{Images: merged, Added: added, Shortfall: requested - added}
}

// MergeReplace discards the existing collection and keeps candidates in fetch
// order, deduplicated within the batch and capped at requested.
func MergeReplace(candidates []string, requested int) MergeResult {
	if requested < 0 {
		requested = 0
	}

	seen := make(map[string]struct{}, requested)
	var merged []string
	for _, c := range candidates {
		if len(merged) >= requested {
			break
		}
		key := Normalize(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, c)
	}

	return MergeResult{Images: merged, Added: len(merged), Shortfall: requested - len(merged)}
}

// RelevanceScore rates a candidate fetched for query against the target
// title, 0-100. When the query is the exact title the provider was trusted
// to rank results, so every candidate is maximally relevant; otherwise fall
// back to a cheap similarity heuristic.
func RelevanceScore(query, title string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	t := strings.ToLower(strings.TrimSpace(title))
	if q != "" && q == t {
		return 100
	}
	return int(utils.CalculateStringSimilarity(q, t) * 100)
}
