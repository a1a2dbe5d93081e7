package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bulletin/internal/platform/middleware"
	"bulletin/internal/subscription/service"
	dErrors "bulletin/pkg/domain-errors"
	"bulletin/pkg/platform/httputil"
)

// Service defines the interface for subscription operations.
type Service interface {
	Register(ctx context.Context, name, email string) (*service.RegistrationResult, error)
	Confirm(ctx context.Context, token string) error
}

// Handler handles subscription endpoints.
type Handler struct {
	logger       *slog.Logger
	subscription Service
}

// New creates a new subscription Handler.
func New(subscription Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:       logger,
		subscription: subscription,
	}
}

// Register registers the subscription routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Post("/subscriptions", h.handleSubscribe)
		r.Get("/subscriptions/confirm", h.handleConfirm)
	})
}

type subscribeRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type subscribeResponse struct {
	SubscriberID string `json:"subscriber_id"`
}

// handleSubscribe registers a pending subscriber and triggers the
// confirmation email.
func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid subscribe request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.subscription.Register(ctx, req.Name, req.Email)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeValidation) || dErrors.Is(err, dErrors.CodeConflict) {
			h.logger.WarnContext(ctx, "subscribe rejected",
				"request_id", requestID,
				"error", err.Error(),
			)
		} else {
			h.logger.ErrorContext(ctx, "subscribe failed",
				"request_id", requestID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, subscribeResponse{
		SubscriberID: result.SubscriberID.String(),
	})
}

// handleConfirm redeems a confirmation token.
func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	token := r.URL.Query().Get("token")
	if token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "token is required"))
		return
	}

	if err := h.subscription.Confirm(ctx, token); err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			h.logger.WarnContext(ctx, "unknown confirmation token",
				"request_id", requestID,
			)
		} else {
			h.logger.ErrorContext(ctx, "confirmation failed",
				"request_id", requestID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}
