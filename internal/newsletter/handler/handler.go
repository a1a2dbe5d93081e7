package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bulletin/internal/newsletter/models"
	"bulletin/internal/platform/middleware"
	dErrors "bulletin/pkg/domain-errors"
	"bulletin/pkg/platform/httputil"
)

// Service defines the interface for newsletter operations.
type Service interface {
	Publish(ctx context.Context, title, message string) (*models.PublishSummary, error)
}

// Handler handles newsletter endpoints. The publish endpoint is for trusted
// internal callers; it carries no authentication of its own.
type Handler struct {
	logger     *slog.Logger
	newsletter Service
}

// New creates a new newsletter Handler.
func New(newsletter Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:     logger,
		newsletter: newsletter,
	}
}

// Register registers the newsletter routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		// Publishing runs the whole recipient set to completion; give it a
		// far larger budget than the subscription endpoints.
		r.Use(middleware.Timeout(5 * time.Minute))
		r.Post("/newsletters", h.handlePublish)
	})
}

type publishRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// handlePublish fans the newsletter out to all confirmed subscribers and
// returns the aggregate summary. Per-recipient failures are reported in the
// summary, never as a batch-level error.
func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid publish request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Message == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "message is required"))
		return
	}

	summary, err := h.newsletter.Publish(ctx, req.Title, req.Message)
	if err != nil {
		h.logger.ErrorContext(ctx, "publish failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	for _, recipientErr := range summary.Errors {
		h.logger.ErrorContext(ctx, "recipient delivery failed",
			"request_id", requestID,
			"subscriber_id", recipientErr.SubscriberID,
			"error", recipientErr.Err.Error(),
		)
	}

	httputil.WriteJSON(w, http.StatusOK, summary)
}
