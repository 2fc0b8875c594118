// Package handlers contains the HTTP handlers of the MyoMesh notifications
// API.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"myomesh/internal/core"
	"myomesh/internal/types"
)

// EmailAdminService is the subset of notifications/core.EmailAdmin used here.
type EmailAdminService interface {
	SendTestEmail(ctx context.Context, userID, orgID, recipient string) (string, error)
	VerifyCredential(ctx context.Context, userID, orgID string) (types.CredentialStatus, error)
}

// SendTestEmailRequest is the body of POST /v1/organizations/{orgID}/email/test.
type SendTestEmailRequest struct {
	TestEmail string `json:"test_email" validate:"required,email"`
}

// SendTestEmailResponse is returned after a successful test send.
type SendTestEmailResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// EmailHandler serves the organization email administration endpoints.
type EmailHandler struct {
	admin     EmailAdminService
	validator *core.Validator
	logger    *slog.Logger
}

// NewEmailHandler creates an EmailHandler.
func NewEmailHandler(admin EmailAdminService, v *core.Validator, l *slog.Logger) *EmailHandler {
	if l == nil {
		l = slog.Default()
	}
	return &EmailHandler{admin: admin, validator: v, logger: l}
}

// RegisterRoutes mounts the email routes onto the /v1 router.
func (h *EmailHandler) RegisterRoutes(r chi.Router) {
	r.Route("/organizations/{orgID}/email", func(r chi.Router) {
		r.Post("/test", h.SendTest)
		r.Post("/verify", h.Verify)
	})
}

// SendTest handles POST /v1/organizations/{orgID}/email/test.
func (h *EmailHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication is required", nil))
		return
	}
	orgID := chi.URLParam(r, "orgID")

	var req SendTestEmailRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	message, err := h.admin.SendTestEmail(r.Context(), actor.UserID, orgID, req.TestEmail)
	if err != nil {
		core.Error(w, r, providerFailure(err))
		return
	}

	core.Data(w, r, http.StatusOK, SendTestEmailResponse{Success: true, Message: message})
}

// Verify handles POST /v1/organizations/{orgID}/email/verify.
func (h *EmailHandler) Verify(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication is required", nil))
		return
	}
	orgID := chi.URLParam(r, "orgID")

	status, err := h.admin.VerifyCredential(r.Context(), actor.UserID, orgID)
	if err != nil {
		core.Error(w, r, providerFailure(err))
		return
	}
	if !status.Valid {
		h.logger.WarnContext(r.Context(), "email provider credential rejected",
			"organization_id", orgID,
			"detail", status.Detail,
		)
	}

	core.Data(w, r, http.StatusOK, status)
}

// providerFailure reports a rejected recipient as a provider failure (502)
// carrying the provider message. Other errors pass through.
func providerFailure(err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) && appErr.Code == types.ErrCodeEmailBlocked {
		return types.NewAppError(types.ErrCodeUpstreamEmailProvider, appErr.Message, err)
	}
	return err
}
