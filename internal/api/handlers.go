package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/subscan/internal/billing"
	"github.com/sells-group/subscan/internal/model"
	"github.com/sells-group/subscan/internal/scan"
	"github.com/sells-group/subscan/internal/source"
)

// ScanStatus is the body of GET /scan.
type ScanStatus struct {
	State    model.ScanState      `json:"state"`
	Progress model.ScanProgress   `json:"progress"`
	Result   *model.SessionResult `json:"result,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// CandidateList is the body of GET /candidates.
type CandidateList struct {
	Items        []model.ReviewItem `json:"items"`
	MonthlyTotal decimal.Decimal    `json:"monthly_total"`
}

// ManualRequest is the body of POST /candidates.
type ManualRequest struct {
	Name  string `json:"name"`
	Price string `json:"price"`
	Cycle string `json:"cycle"`
}

// ConfirmResponse is the body of POST /confirm.
type ConfirmResponse struct {
	Confirmed    []model.Candidate `json:"confirmed"`
	MonthlyTotal decimal.Decimal   `json:"monthly_total"`
	AnnualTotal  decimal.Decimal   `json:"annual_total"`
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetScan returns lifecycle state, progress and the latest result.
func (h *Handler) GetScan(w http.ResponseWriter, _ *http.Request) {
	status := ScanStatus{
		State:    h.orch.State(),
		Progress: h.orch.Progress(),
		Result:   h.orch.Result(),
	}
	if err := h.orch.Err(); err != nil {
		status.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, status)
}

// StartScan starts a background scan. The body may select sources.
func (h *Handler) StartScan(w http.ResponseWriter, r *http.Request) {
	opts := scan.AllSources()
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !opts.IncludePurchases && !opts.IncludeEmail {
		writeError(w, http.StatusBadRequest, "at least one source must be included")
		return
	}

	gen := h.orch.StartScan(r.Context(), opts)
	h.log.Info("api: scan started", zap.Uint64("generation", gen))
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":     "accepted",
		"generation": gen,
	})
}

// StartManual skips scanning and opens an empty review.
func (h *Handler) StartManual(w http.ResponseWriter, _ *http.Request) {
	h.orch.StartManualEntry()
	writeJSON(w, http.StatusOK, map[string]any{"state": h.orch.State()})
}

// GetCandidates lists the review set with running totals.
func (h *Handler) GetCandidates(w http.ResponseWriter, _ *http.Request) {
	items := h.orch.Candidates()
	included := make([]model.Candidate, 0, len(items))
	for _, it := range items {
		if it.Included {
			included = append(included, it.Candidate)
		}
	}
	writeJSON(w, http.StatusOK, CandidateList{
		Items:        items,
		MonthlyTotal: billing.MonthlyTotal(included),
	})
}

// AddCandidate validates and appends a manual record to the review set.
func (h *Handler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	var req ManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil {
		writeError(w, http.StatusBadRequest, "price must be a decimal number")
		return
	}

	c := source.NewManual(req.Name, price, model.ParseCycle(req.Cycle))
	if err := source.Validate(c); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.orch.AddManual(c); err != nil {
		writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ToggleCandidate flips a candidate's inclusion.
func (h *Handler) ToggleCandidate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	included, err := h.orch.ToggleInclusion(id)
	if err != nil {
		writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "included": included})
}

// Confirm completes the review and returns the confirmed records.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	confirmed, err := h.orch.Confirm(r.Context())
	if err != nil {
		writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ConfirmResponse{
		Confirmed:    confirmed,
		MonthlyTotal: billing.MonthlyTotal(confirmed),
		AnnualTotal:  billing.AnnualTotal(confirmed),
	})
}

// GetSubscriptions lists persisted confirmed subscriptions.
func (h *Handler) GetSubscriptions(w http.ResponseWriter, r *http.Request) {
	if h.subs == nil {
		writeError(w, http.StatusServiceUnavailable, "no store configured")
		return
	}
	subs, err := h.subs.ListConfirmed(r.Context())
	if err != nil {
		h.log.Error("api: list subscriptions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}
	if subs == nil {
		subs = []model.Subscription{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": subs})
}

func writeScanError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, scan.ErrUnknownCandidate):
		writeError(w, http.StatusNotFound, err.Error())
	case eris.Is(err, scan.ErrInvalidState), eris.Is(err, scan.ErrSuperseded):
		writeError(w, http.StatusConflict, err.Error())
	default:
		zap.L().Error("api: scan operation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
