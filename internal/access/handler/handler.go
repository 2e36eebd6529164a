// Package handler exposes the disclosure pipeline over HTTP. Handlers stay
// thin: parse, delegate, map errors to status codes.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"medgate/internal/access"
	"medgate/internal/audit"
	"medgate/internal/consent"
	"medgate/internal/patient"
	"medgate/internal/platform/metrics"
	"medgate/internal/platform/middleware"
	"medgate/pkg/domain"
	dErrors "medgate/pkg/domain-errors"
	"medgate/pkg/platform/httputil"
	"medgate/pkg/platform/middleware/metadata"
	"medgate/pkg/requestcontext"
)

// Service defines the access operations the HTTP layer needs.
type Service interface {
	RequestAccess(ctx context.Context, patientID string, purpose domain.Purpose) (*access.Result, error)
	GetSummary(ctx context.Context, patientID string) (patient.Summary, error)
	GrantConsent(ctx context.Context, patientID string, purpose domain.Purpose, grantedBy string, expiresAt *time.Time) (*consent.Grant, error)
	WithdrawConsent(ctx context.Context, patientID, consentID string) error
	AuditTrail(ctx context.Context, patientID string) ([]audit.Entry, error)
}

// Handler handles patient access and consent endpoints.
type Handler struct {
	logger    *slog.Logger
	access    Service
	metrics   *metrics.Metrics
	validator middleware.ActorValidator
}

// New creates the access Handler.
func New(access Service, validator middleware.ActorValidator, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		access:    access,
		metrics:   m,
		validator: validator,
	}
}

// Register mounts the patient routes with the full middleware chain.
func (h *Handler) Register(r chi.Router) {
	pr := chi.NewRouter()
	pr.Use(middleware.Recovery(h.logger))
	pr.Use(middleware.RequestID)
	pr.Use(middleware.Logger(h.logger))
	pr.Use(middleware.Timeout(30 * time.Second))
	pr.Use(middleware.ContentTypeJSON)
	pr.Use(metadata.ClientMetadata)
	pr.Use(middleware.LatencyMiddleware(h.metrics))
	pr.Use(middleware.RequireAuth(h.validator, h.logger))

	pr.Get("/patients/{patientID}", h.handleRequestAccess)
	pr.Get("/patients/{patientID}/summary", h.handleGetSummary)
	pr.Get("/patients/{patientID}/audit", h.handleAuditTrail)
	pr.Post("/patients/{patientID}/consents", h.handleGrantConsent)
	pr.Delete("/patients/{patientID}/consents/{consentID}", h.handleWithdrawConsent)

	r.Mount("/", pr)
}

// handleRequestAccess runs the disclosure pipeline for one patient record.
// The purpose is a required query parameter.
func (h *Handler) handleRequestAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	purpose, err := domain.ParsePurpose(r.URL.Query().Get("purpose"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.access.RequestAccess(ctx, chi.URLParam(r, "patientID"), purpose)
	if err != nil {
		h.writeServiceError(ctx, w, err, "request access")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.access.GetSummary(ctx, chi.URLParam(r, "patientID"))
	if err != nil {
		h.writeServiceError(ctx, w, err, "get summary")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

// handleAuditTrail returns the patient's audit trail. Compliance review is an
// admin function.
func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := requestcontext.Actor(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "audit trail review is restricted to administrators"))
		return
	}

	entries, err := h.access.AuditTrail(ctx, chi.URLParam(r, "patientID"))
	if err != nil {
		h.writeServiceError(ctx, w, err, "list audit trail")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]audit.Entry{"entries": entries})
}

type grantConsentRequest struct {
	Purpose   string     `json:"purpose"`
	GrantedBy string     `json:"grantedBy"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (h *Handler) handleGrantConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req grantConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	purpose, err := domain.ParsePurpose(req.Purpose)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	grant, err := h.access.GrantConsent(ctx, chi.URLParam(r, "patientID"), purpose, req.GrantedBy, req.ExpiresAt)
	if err != nil {
		h.writeServiceError(ctx, w, err, "grant consent")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, grant)
}

func (h *Handler) handleWithdrawConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := h.access.WithdrawConsent(ctx, chi.URLParam(r, "patientID"), chi.URLParam(r, "consentID"))
	if err != nil {
		h.writeServiceError(ctx, w, err, "withdraw consent")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError logs unexpected failures and maps coded errors to status
// codes. Expected outcomes (denials, not-found, conflicts) are logged at
// debug only; the audit trail is the record of denials, not the error log.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, op string) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal:
		h.logger.ErrorContext(ctx, op+" failed",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
	default:
		h.logger.DebugContext(ctx, op+" rejected",
			"code", string(dErrors.CodeOf(err)),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}
