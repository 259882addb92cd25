package orders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/storefront-commerce/internal/auth"
	"github.com/joao-fontenele/storefront-commerce/internal/domain"
)

type OrderLister interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}

type Handler struct {
	repo   OrderLister
	logger *slog.Logger
}

func NewHandler(repo OrderLister, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// HandleList returns the signed-in user's order history.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	orders, err := h.repo.ListByUser(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "user_id", identity.UserID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("orders listed", "user_id", identity.UserID, "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
