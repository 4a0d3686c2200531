package scan

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/subscan/internal/model"
)

// --- Sink Mock ---

type mockSink struct {
	mock.Mock
}

func (m *mockSink) SaveSession(ctx context.Context, result *model.SessionResult) error {
	return m.Called(ctx, result).Error(0)
}

func (m *mockSink) SaveConfirmed(ctx context.Context, sessionID string, records []model.Candidate) error {
	return m.Called(ctx, sessionID, records).Error(0)
}

// --- Fixtures ---

func purchaseRecord(id, name string) model.Candidate {
	return model.Candidate{
		ID:          id,
		DisplayName: name,
		Price:       decimal.RequireFromString("15.99"),
		Cycle:       model.CycleMonthly,
		Confidence:  model.ConfidenceHigh,
		Origin:      model.OriginPurchase,
		ProductID:   "com." + strings.ToLower(name),
	}
}

func emailRecord(id, name string, conf model.Confidence) model.Candidate {
	return model.Candidate{
		ID:          id,
		DisplayName: name,
		Price:       decimal.RequireFromString("9.99"),
		Cycle:       model.CycleMonthly,
		Confidence:  conf,
		Origin:      model.OriginEmail,
		SenderID:    "receipts@" + strings.ToLower(name) + ".com",
	}
}

// staticSource reports items scanned then returns records.
func staticSource(items int, records []model.Candidate, err error) Source {
	return SourceFunc(func(_ context.Context, report Reporter) ([]model.Candidate, error) {
		report(model.SourceUpdate{ItemsScanned: items, CandidatesFound: len(records)})
		return records, err
	})
}

// gatedSource blocks until release is closed or ctx is done.
func gatedSource(release <-chan struct{}, records []model.Candidate) Source {
	return SourceFunc(func(ctx context.Context, report Reporter) ([]model.Candidate, error) {
		report(model.SourceUpdate{ItemsScanned: 1, Current: "waiting"})
		select {
		case <-release:
			return records, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

func candidateIDs(records []model.Candidate) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

func itemIDs(items []model.ReviewItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.Candidate.ID
	}
	return ids
}
