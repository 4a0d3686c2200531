package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/subscan/internal/model"
)

func TestFormatSessions(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	sessions := []model.SessionResult{
		{
			ID:             "abc12345-6789-0000-0000-000000000000",
			Candidates:     make([]model.Candidate, 4),
			ItemsScanned:   312,
			Duration:       2500 * time.Millisecond,
			StartedAt:      now,
			PurchaseStatus: model.SourceFailed,
			EmailStatus:    model.SourceComplete,
			Error:          "scan: purchase history unavailable, try again",
		},
	}

	var buf bytes.Buffer
	formatSessions(&buf, sessions)

	output := buf.String()
	assert.Contains(t, output, "STARTED")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "2026-03-01 10:30")
	assert.Contains(t, output, "2.5s")
	assert.Contains(t, output, "312")
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "try again")
}

func TestFormatSubscriptions(t *testing.T) {
	confirmed := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	subs := []model.Subscription{
		{
			Candidate: model.Candidate{
				DisplayName: "Netflix",
				Price:       decimal.RequireFromString("15.99"),
				Cycle:       model.CycleMonthly,
				Origin:      model.OriginPurchase,
			},
			ConfirmedAt: confirmed,
		},
		{
			Candidate: model.Candidate{
				DisplayName: "Spotify",
				Price:       decimal.RequireFromString("120"),
				Cycle:       model.CycleYearly,
				Origin:      model.OriginEmail,
			},
			ConfirmedAt: confirmed,
		},
	}

	var buf bytes.Buffer
	formatSubscriptions(&buf, subs)

	output := buf.String()
	assert.Contains(t, output, "Netflix")
	assert.Contains(t, output, "2026-03-02")
	assert.Contains(t, output, "Monthly total: 25.99")
	assert.Contains(t, output, "Annual total:  311.88")
}
