package reconcile

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/subscan/internal/model"
)

// Rank returns a copy of records ordered by confidence (high first), then by
// display name case-insensitively. Equal keys keep their input order.
func Rank(records []model.Candidate) []model.Candidate {
	ranked := slices.Clone(records)
	fold := cases.Fold()
	keys := make(map[string]string, len(ranked))
	for _, r := range ranked {
		keys[r.DisplayName] = fold.String(r.DisplayName)
	}
	slices.SortStableFunc(ranked, func(a, b model.Candidate) int {
		if d := b.Confidence.Rank() - a.Confidence.Rank(); d != 0 {
			return d
		}
		return strings.Compare(keys[a.DisplayName], keys[b.DisplayName])
	})
	return ranked
}
