package source

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sells-group/subscan/internal/model"
)

// NewManual builds a user-entered record. Manual records are always high
// confidence.
func NewManual(name string, price decimal.Decimal, cycle model.BillingCycle) model.Candidate {
	return model.Candidate{
		ID:          uuid.New().String(),
		DisplayName: strings.TrimSpace(name),
		Price:       price,
		Cycle:       cycle,
		Confidence:  model.ConfidenceHigh,
		Origin:      model.OriginManual,
		DetectedAt:  time.Now().UTC(),
	}
}
