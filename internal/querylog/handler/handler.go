package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"burogate/internal/querylog"
	id "burogate/pkg/domain"
	dErrors "burogate/pkg/domain-errors"
	"burogate/pkg/platform/httputil"
	"burogate/pkg/requestcontext"
)

// Service is the slice of the query-log service the handler needs.
type Service interface {
	ListByConsultant(ctx context.Context, consultantID id.EntityID, limit int) ([]querylog.QueryLog, error)
	ListByTitular(ctx context.Context, titularID id.EntityID, limit int) ([]querylog.QueryLog, error)
}

// Handler exposes the audit-trail transparency endpoints: an entity can see
// both the queries it performed and the queries performed against its data.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/query-logs", func(r chi.Router) {
		r.Get("/performed", h.handleListPerformed)
		r.Get("/received", h.handleListReceived)
	})
}

type logResponse struct {
	ID             int64              `json:"id"`
	ConsentID      int64              `json:"consent_id,omitempty"`
	TitularID      int64              `json:"titular_id"`
	ConsultantID   int64              `json:"consultant_id"`
	OperatorUserID int64              `json:"operator_user_id"`
	QueryType      querylog.QueryType `json:"query_type"`
	Outcome        querylog.Outcome   `json:"outcome"`
	Reason         string             `json:"reason,omitempty"`
	OriginIP       string             `json:"origin_ip,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

func (h *Handler) handleListPerformed(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListByConsultant)
}

func (h *Handler) handleListReceived(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListByTitular)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, fetch func(context.Context, id.EntityID, int) ([]querylog.QueryLog, error)) {
	ctx := r.Context()
	ident, ok := requestcontext.Identity(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing authenticated identity"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	entries, err := fetch(ctx, ident.EntityID, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list query logs",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error())
		httputil.WriteError(w, err)
		return
	}

	out := make([]logResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, logResponse{
			ID:             e.ID,
			ConsentID:      int64(e.ConsentID),
			TitularID:      int64(e.TitularID),
			ConsultantID:   int64(e.ConsultantID),
			OperatorUserID: int64(e.OperatorUserID),
			QueryType:      e.QueryType,
			Outcome:        e.Outcome,
			Reason:         e.Reason,
			OriginIP:       e.OriginIP,
			CreatedAt:      e.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"logs": out})
}
