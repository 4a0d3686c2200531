package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BillingCycle is how often a subscription charges.
type BillingCycle string

const (
	CycleWeekly    BillingCycle = "weekly"
	CycleMonthly   BillingCycle = "monthly"
	CycleQuarterly BillingCycle = "quarterly"
	CycleYearly    BillingCycle = "yearly"
	CycleUnknown   BillingCycle = "unknown"
)

// Days returns the approximate length of the cycle in days. Unknown is 0.
func (c BillingCycle) Days() int {
	switch c {
	case CycleWeekly:
		return 7
	case CycleMonthly:
		return 30
	case CycleQuarterly:
		return 90
	case CycleYearly:
		return 365
	default:
		return 0
	}
}

// ParseCycle maps the spellings collaborators emit onto a BillingCycle.
func ParseCycle(s string) BillingCycle {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekly", "week", "wk":
		return CycleWeekly
	case "monthly", "month", "mo":
		return CycleMonthly
	case "quarterly", "quarter", "qtr":
		return CycleQuarterly
	case "yearly", "year", "annual", "annually", "yr":
		return CycleYearly
	default:
		return CycleUnknown
	}
}

// Confidence is the coarse trust label a collaborator attaches to a candidate.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank returns the numeric sort weight: high=3, medium=2, low=1.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// ParseConfidence maps a label onto a Confidence, defaulting to low.
func ParseConfidence(s string) Confidence {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return ConfidenceHigh
	case "medium", "med":
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Origin identifies which collaborator produced a candidate.
type Origin string

const (
	OriginEmail    Origin = "email"
	OriginPurchase Origin = "purchase-history"
	OriginManual   Origin = "manual"
)

// Candidate is a provisional, not-yet-confirmed recurring charge from one source.
type Candidate struct {
	ID              string          `json:"id" validate:"required"`
	MerchantID      string          `json:"merchant_id"`
	DisplayName     string          `json:"display_name" validate:"required"`
	Price           decimal.Decimal `json:"price"`
	Cycle           BillingCycle    `json:"cycle" validate:"oneof=weekly monthly quarterly yearly unknown"`
	Confidence      Confidence      `json:"confidence" validate:"oneof=high medium low"`
	NextBillingDate *time.Time      `json:"next_billing_date,omitempty"`
	LastChargeDate  *time.Time      `json:"last_charge_date,omitempty"`
	EvidenceCount   int             `json:"evidence_count" validate:"gte=0"`
	Origin          Origin          `json:"origin" validate:"oneof=email purchase-history manual"`
	SenderID        string          `json:"sender_id,omitempty"`
	DetectedAt      time.Time       `json:"detected_at"`
	ProductID       string          `json:"product_id,omitempty"`
}

// ReviewItem is a candidate held for user review with its inclusion flag.
type ReviewItem struct {
	Candidate         Candidate       `json:"candidate"`
	Included          bool            `json:"included"`
	MonthlyEquivalent decimal.Decimal `json:"monthly_equivalent"`
}

// Subscription is a confirmed candidate as persisted.
type Subscription struct {
	Candidate
	SessionID   string    `json:"session_id,omitempty"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}
