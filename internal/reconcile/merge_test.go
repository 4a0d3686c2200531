package reconcile

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/subscan/internal/merchant"
	"github.com/sells-group/subscan/internal/model"
)

func purchase(id, name string, conf model.Confidence) model.Candidate {
	return model.Candidate{
		ID:          id,
		DisplayName: name,
		Price:       decimal.RequireFromString("9.99"),
		Cycle:       model.CycleMonthly,
		Confidence:  conf,
		Origin:      model.OriginPurchase,
		ProductID:   "com.example." + strings.ToLower(name),
	}
}

func email(id, name string, conf model.Confidence) model.Candidate {
	return model.Candidate{
		ID:          id,
		DisplayName: name,
		Price:       decimal.RequireFromString("9.99"),
		Cycle:       model.CycleMonthly,
		Confidence:  conf,
		Origin:      model.OriginEmail,
		SenderID:    "billing@" + strings.ToLower(name) + ".com",
	}
}

func TestMerge_HigherTrustWins(t *testing.T) {
	a := []model.Candidate{purchase("a1", "Netflix", model.ConfidenceHigh)}
	b := []model.Candidate{email("b1", "netflix premium", model.ConfidenceMedium)}

	got := Merge(a, b)
	require.Len(t, got, 1)
	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, model.OriginPurchase, got[0].Origin)
}

func TestMerge_EmptyPurchases(t *testing.T) {
	b := []model.Candidate{
		email("b1", "Spotify", model.ConfidenceLow),
		email("b2", "Hulu", model.ConfidenceHigh),
	}

	got := Merge(nil, b)
	assert.Equal(t, []string{"Hulu", "Spotify"}, names(got))
}

func TestMerge_EmptyEmails(t *testing.T) {
	a := []model.Candidate{
		purchase("a1", "Zoom", model.ConfidenceMedium),
		purchase("a2", "Audible", model.ConfidenceHigh),
	}
	assert.Equal(t, Rank(a), Merge(a, nil))
}

func TestMerge_BothEmpty(t *testing.T) {
	assert.Empty(t, Merge(nil, nil))
}

func TestMerge_PurchasesNotDedupedAgainstThemselves(t *testing.T) {
	a := []model.Candidate{
		purchase("a1", "Netflix", model.ConfidenceHigh),
		purchase("a2", "Netflix Premium", model.ConfidenceHigh),
	}
	got := Merge(a, nil)
	assert.Len(t, got, 2)
}

func TestMerge_EmailDuplicatesCollapseFirstWins(t *testing.T) {
	b := []model.Candidate{
		email("b1", "Hulu", model.ConfidenceMedium),
		email("b2", "Hulo", model.ConfidenceHigh),
	}
	got := Merge(nil, b)
	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0].ID)
}

func TestMerge_EmptyKeysAreKept(t *testing.T) {
	a := []model.Candidate{purchase("a1", "Premium", model.ConfidenceHigh)}
	b := []model.Candidate{
		email("b1", "Plus", model.ConfidenceLow),
		email("b2", "Subscription", model.ConfidenceLow),
	}
	got := Merge(a, b)
	assert.Len(t, got, 3)
}

func TestMerge_ContainmentAcrossSources(t *testing.T) {
	a := []model.Candidate{purchase("a1", "Amazon Prime", model.ConfidenceHigh)}
	b := []model.Candidate{
		email("b1", "Amazon Prime Video", model.ConfidenceMedium),
		email("b2", "Dropbox", model.ConfidenceMedium),
	}
	got := Merge(a, b)
	assert.Equal(t, []string{"Amazon Prime", "Dropbox"}, names(got))
}

var merchantPool = []string{
	"Netflix", "netflix premium", "Hulu", "Hulo", "Spotify", "Spotify Premium",
	"Disney+", "Apple Music", "Apple TV+", "YouTube Premium", "ChatGPT Plus",
	"chatgptplus", "Dropbox", "Dropbox Plus", "Audible", "Amazon Prime",
	"Amazon Prime Video", "Notion", "Notion Pro", "Zoom", "Premium", "Plus",
}

var confidences = []model.Confidence{model.ConfidenceHigh, model.ConfidenceMedium, model.ConfidenceLow}

func randomList(r *rand.Rand, prefix string, origin model.Origin) []model.Candidate {
	n := r.IntN(8)
	out := make([]model.Candidate, n)
	for i := range out {
		name := merchantPool[r.IntN(len(merchantPool))]
		conf := confidences[r.IntN(len(confidences))]
		id := fmt.Sprintf("%s%d", prefix, i)
		if origin == model.OriginPurchase {
			out[i] = purchase(id, name, conf)
		} else {
			out[i] = email(id, name, conf)
		}
	}
	return out
}

func assertRanked(t *testing.T, records []model.Candidate) {
	t.Helper()
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		require.GreaterOrEqual(t, prev.Confidence.Rank(), cur.Confidence.Rank())
		if prev.Confidence == cur.Confidence {
			require.LessOrEqual(t, strings.ToLower(prev.DisplayName), strings.ToLower(cur.DisplayName))
		}
	}
}

func TestMerge_Properties(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 7))

	for iter := 0; iter < 500; iter++ {
		a := randomList(r, "a", model.OriginPurchase)
		b := randomList(r, "b", model.OriginEmail)
		got := Merge(a, b)

		byID := make(map[string]model.Candidate, len(a)+len(b))
		for _, c := range append(append([]model.Candidate{}, a...), b...) {
			byID[c.ID] = c
		}

		// Every output record comes from an input, and every purchase survives.
		for _, c := range got {
			_, ok := byID[c.ID]
			require.True(t, ok, "invented record %s", c.ID)
		}
		outIDs := make(map[string]bool, len(got))
		for _, c := range got {
			outIDs[c.ID] = true
		}
		for _, c := range a {
			require.True(t, outIDs[c.ID], "purchase %s dropped", c.ID)
		}

		// No two surviving records match unless both are purchases.
		for i := range got {
			for j := i + 1; j < len(got); j++ {
				if got[i].Origin == model.OriginPurchase && got[j].Origin == model.OriginPurchase {
					continue
				}
				ki, kj := merchant.Normalize(got[i].DisplayName), merchant.Normalize(got[j].DisplayName)
				require.False(t, merchant.IsSameMerchant(ki, kj),
					"duplicates survived: %q and %q", got[i].DisplayName, got[j].DisplayName)
			}
		}

		assertRanked(t, got)

		// Re-merging the output changes nothing.
		assert.Equal(t, got, Merge(got, nil))
	}
}
