// Package reconcile merges candidate lists from independent sources into one
// deduplicated, ranked list.
package reconcile

import (
	"github.com/sells-group/subscan/internal/merchant"
	"github.com/sells-group/subscan/internal/model"
)

// Merge combines purchase-history records (higher trust) with email-derived
// records (lower trust). Every purchase record is kept in input order; an
// email record is dropped when its normalized name matches any key already
// kept. The combined list is ranked before it is returned.
//
// Purchase records are never deduplicated against each other.
func Merge(purchases, emails []model.Candidate) []model.Candidate {
	out := make([]model.Candidate, 0, len(purchases)+len(emails))
	var seen []string

	for _, r := range purchases {
		out = append(out, r)
		if key := merchant.Normalize(r.DisplayName); key != "" {
			seen = append(seen, key)
		}
	}

	for _, r := range emails {
		key := merchant.Normalize(r.DisplayName)
		if matchesAny(key, seen) {
			continue
		}
		out = append(out, r)
		if key != "" {
			seen = append(seen, key)
		}
	}

	return Rank(out)
}

func matchesAny(key string, seen []string) bool {
	for _, s := range seen {
		if merchant.IsSameMerchant(key, s) {
			return true
		}
	}
	return false
}
