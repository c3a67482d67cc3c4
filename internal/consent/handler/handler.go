package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"burogate/internal/consent"
	id "burogate/pkg/domain"
	dErrors "burogate/pkg/domain-errors"
	"burogate/pkg/platform/httputil"
	"burogate/pkg/requestcontext"
)

// Service is the slice of the consent service the handler needs.
type Service interface {
	CreateSelfConsent(ctx context.Context, caller id.EntityID, expiry time.Time) (consent.EntityConsent, error)
	GetSelfConsent(ctx context.Context, caller id.EntityID, consentID id.ConsentID) (consent.EntityConsent, error)
	RevokeSelfConsent(ctx context.Context, caller id.EntityID, consentID id.ConsentID) (consent.EntityConsent, error)
	RenewSelfConsent(ctx context.Context, caller id.EntityID, consentID id.ConsentID, expiry time.Time) (consent.EntityConsent, error)
	CreateQueryConsent(ctx context.Context, titular, consultant id.EntityID, expiry time.Time) (consent.QueryConsent, error)
	GetQueryConsent(ctx context.Context, caller id.EntityID, consentID id.ConsentID) (consent.QueryConsent, error)
	ListGrantedConsents(ctx context.Context, caller id.EntityID) ([]consent.QueryConsent, error)
	ListReceivedConsents(ctx context.Context, caller id.EntityID) ([]consent.QueryConsent, error)
	RevokeQueryConsent(ctx context.Context, caller id.EntityID, consentID id.ConsentID) (consent.QueryConsent, error)
	RenewQueryConsent(ctx context.Context, caller id.EntityID, consentID id.ConsentID, expiry time.Time) (consent.QueryConsent, error)
}

// Handler exposes the consent lifecycle endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the consent routes. The caller wires authentication and the
// rest of the middleware chain on the parent router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/consents", func(r chi.Router) {
		r.Post("/self", h.handleCreateSelfConsent)
		r.Get("/self/{consentID}", h.handleGetSelfConsent)
		r.Post("/self/{consentID}/revoke", h.handleRevokeSelfConsent)
		r.Post("/self/{consentID}/renew", h.handleRenewSelfConsent)

		r.Post("/queries", h.handleCreateQueryConsent)
		r.Get("/queries/granted", h.handleListGranted)
		r.Get("/queries/received", h.handleListReceived)
		r.Get("/queries/{consentID}", h.handleGetQueryConsent)
		r.Post("/queries/{consentID}/revoke", h.handleRevokeQueryConsent)
		r.Post("/queries/{consentID}/renew", h.handleRenewQueryConsent)
	})
}

type expiryRequest struct {
	ExpiryAt time.Time `json:"expiry_at"`
}

type createQueryConsentRequest struct {
	ConsultantID int64     `json:"consultant_id"`
	ExpiryAt     time.Time `json:"expiry_at"`
}

type selfConsentResponse struct {
	ID        int64      `json:"id"`
	EntityID  int64      `json:"entity_id"`
	State     string     `json:"state"`
	StartAt   time.Time  `json:"start_at"`
	ExpiryAt  time.Time  `json:"expiry_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type queryConsentResponse struct {
	ID               int64      `json:"id"`
	TitularID        int64      `json:"titular_id"`
	ConsultantID     int64      `json:"consultant_id"`
	State            string     `json:"state"`
	StartAt          time.Time  `json:"start_at"`
	ExpiryAt         time.Time  `json:"expiry_at"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	QueriesPerformed int        `json:"queries_performed"`
	LastUsedAt       *time.Time `json:"last_used_at,omitempty"`
	OriginIP         string     `json:"origin_ip,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toSelfConsentResponse(c consent.EntityConsent, now time.Time) selfConsentResponse {
	return selfConsentResponse{
		ID:        int64(c.ID),
		EntityID:  int64(c.EntityID),
		State:     string(c.State(now)),
		StartAt:   c.Start,
		ExpiryAt:  c.Expiry,
		RevokedAt: c.RevokedAt,
		CreatedAt: c.CreatedAt,
	}
}

func toQueryConsentResponse(c consent.QueryConsent, now time.Time) queryConsentResponse {
	return queryConsentResponse{
		ID:               int64(c.ID),
		TitularID:        int64(c.TitularID),
		ConsultantID:     int64(c.ConsultantID),
		State:            string(c.State(now)),
		StartAt:          c.Start,
		ExpiryAt:         c.Expiry,
		RevokedAt:        c.RevokedAt,
		QueriesPerformed: c.QueriesPerformed,
		LastUsedAt:       c.LastUsedAt,
		OriginIP:         c.OriginIP,
		CreatedAt:        c.CreatedAt,
	}
}

func (h *Handler) handleCreateSelfConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[expiryRequest](w, r)
	if !ok {
		return
	}
	created, err := h.service.CreateSelfConsent(ctx, caller, req.ExpiryAt)
	if err != nil {
		h.writeError(w, r, "create self consent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toSelfConsentResponse(created, requestcontext.Now(ctx)))
}

func (h *Handler) handleGetSelfConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}
	c, err := h.service.GetSelfConsent(ctx, caller, consentID)
	if err != nil {
		h.writeError(w, r, "get self consent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSelfConsentResponse(c, requestcontext.Now(ctx)))
}

func (h *Handler) handleRevokeSelfConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}
	c, err := h.service.RevokeSelfConsent(ctx, caller, consentID)
	if err != nil {
		h.writeError(w, r, "revoke self consent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSelfConsentResponse(c, requestcontext.Now(ctx)))
}

func (h *Handler) handleRenewSelfConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[expiryRequest](w, r)
	if !ok {
		return
	}
	c, err := h.service.RenewSelfConsent(ctx, caller, consentID, req.ExpiryAt)
	if err != nil {
		h.writeError(w, r, "renew self consent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSelfConsentResponse(c, requestcontext.Now(ctx)))
}

func (h *Handler) handleCreateQueryConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[createQueryConsentRequest](w, r)
	if !ok {
		return
	}
	if req.ConsultantID <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "consultant_id must be a positive integer"))
		return
	}
	created, err := h.service.CreateQueryConsent(ctx, caller, id.EntityID(req.ConsultantID), req.ExpiryAt)
	if err != nil {
		h.writeError(w, r, "create query consent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toQueryConsentResponse(created, requestcontext.Now(ctx)))
}

func (h *Handler) handleGetQueryConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}
	c, err := h.service.GetQueryConsent(ctx, caller, consentID)
	if err != nil {
		h.writeError(w, r, "get query consent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toQueryConsentResponse(c, requestcontext.Now(ctx)))
}

func (h *Handler) handleListGranted(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListGrantedConsents)
}

func (h *Handler) handleListReceived(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListReceivedConsents)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, fetch func(context.Context, id.EntityID) ([]consent.QueryConsent, error)) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	consents, err := fetch(ctx, caller)
	if err != nil {
		h.writeError(w, r, "list query consents", err)
		return
	}
	now := requestcontext.Now(ctx)
	out := make([]queryConsentResponse, 0, len(consents))
	for _, c := range consents {
		out = append(out, toQueryConsentResponse(c, now))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"consents": out})
}

func (h *Handler) handleRevokeQueryConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}
	c, err := h.service.RevokeQueryConsent(ctx, caller, consentID)
	if err != nil {
		h.writeError(w, r, "revoke query consent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toQueryConsentResponse(c, requestcontext.Now(ctx)))
}

func (h *Handler) handleRenewQueryConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[expiryRequest](w, r)
	if !ok {
		return
	}
	c, err := h.service.RenewQueryConsent(ctx, caller, consentID, req.ExpiryAt)
	if err != nil {
		h.writeError(w, r, "renew query consent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toQueryConsentResponse(c, requestcontext.Now(ctx)))
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (id.EntityID, bool) {
	ident, ok := requestcontext.Identity(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing authenticated identity"))
		return 0, false
	}
	return ident.EntityID, true
}

func (h *Handler) consentID(w http.ResponseWriter, r *http.Request) (id.ConsentID, bool) {
	consentID, err := id.ParseConsentID(chi.URLParam(r, "consentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return 0, false
	}
	return consentID, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "consent operation failed",
			"operation", op,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error())
	}
	httputil.WriteError(w, err)
}
