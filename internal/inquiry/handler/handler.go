// Package handler exposes the gated query endpoints. Every route here runs
// the full authorization pipeline in the inquiry service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"burogate/internal/inquiry"
	dErrors "burogate/pkg/domain-errors"
	"burogate/pkg/platform/httputil"
	"burogate/pkg/requestcontext"
)

// Service is the slice of the inquiry service the handler needs.
type Service interface {
	FullHistory(ctx context.Context, rawTaxID string) (inquiry.FullHistory, error)
	Summary(ctx context.Context, rawTaxID string) (inquiry.SummaryReport, error)
	Obligations(ctx context.Context, rawTaxID string) (inquiry.ObligationsReport, error)
	Payments(ctx context.Context, rawTaxID string) (inquiry.PaymentsReport, error)
	CalculateScore(ctx context.Context, rawTaxID string) (inquiry.ScoreReport, error)
	ScoreHistory(ctx context.Context, rawTaxID string, limit int) (inquiry.ScoreHistory, error)
	LatestScore(ctx context.Context, rawTaxID string) (inquiry.LatestScore, error)
	CompareScores(ctx context.Context, rawTaxID string) (inquiry.ScoreComparison, error)
}

// Handler exposes the credit-history and scoring endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the query routes. Authentication is wired on the parent
// router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/credit-history/{taxID}", func(r chi.Router) {
		r.Get("/", h.handleSummary)
		r.Get("/full", h.handleFullHistory)
		r.Get("/obligations", h.handleObligations)
		r.Get("/payments", h.handlePayments)
	})
	r.Route("/scoring", func(r chi.Router) {
		r.Post("/calculate/{taxID}", h.handleCalculate)
		r.Get("/history/{taxID}", h.handleScoreHistory)
		r.Get("/latest/{taxID}", h.handleLatestScore)
		r.Get("/compare/{taxID}", h.handleCompareScores)
	})
}

func (h *Handler) handleFullHistory(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.FullHistory(r.Context(), chi.URLParam(r, "taxID"))
	if err != nil {
		h.writeError(w, r, "full credit history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Summary(r.Context(), chi.URLParam(r, "taxID"))
	if err != nil {
		h.writeError(w, r, "credit summary", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleObligations(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Obligations(r.Context(), chi.URLParam(r, "taxID"))
	if err != nil {
		h.writeError(w, r, "credit obligations", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handlePayments(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Payments(r.Context(), chi.URLParam(r, "taxID"))
	if err != nil {
		h.writeError(w, r, "payment history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.CalculateScore(r.Context(), chi.URLParam(r, "taxID"))
	if err != nil {
		h.writeError(w, r, "calculate score", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleScoreHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r)
	if !ok {
		return
	}
	report, err := h.service.ScoreHistory(r.Context(), chi.URLParam(r, "taxID"), limit)
	if err != nil {
		h.writeError(w, r, "score history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleLatestScore(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.LatestScore(r.Context(), chi.URLParam(r, "taxID"))
	if err != nil {
		h.writeError(w, r, "latest score", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleCompareScores(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.CompareScores(r.Context(), chi.URLParam(r, "taxID"))
	if err != nil {
		h.writeError(w, r, "compare scores", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a non-negative integer"))
		return 0, false
	}
	return limit, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "query operation failed",
			"operation", op,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error())
	}
	httputil.WriteError(w, err)
}
