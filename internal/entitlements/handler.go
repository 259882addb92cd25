package entitlements

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/storefront-commerce/internal/auth"
	"github.com/joao-fontenele/storefront-commerce/internal/domain"
	"github.com/joao-fontenele/storefront-commerce/internal/telemetry"
)

type DownloadIssuer interface {
	Issue(ctx context.Context, userID, productID string) (Credential, error)
}

type FreeClaimer interface {
	Claim(ctx context.Context, identity auth.Identity, productID string) error
}

type Handler struct {
	issuer       DownloadIssuer
	claimer      FreeClaimer
	entitlements EntitlementChecker
	metrics      *telemetry.CommerceMetrics
	logger       *slog.Logger
}

// NewHandler builds the storefront entitlement endpoints. metrics may be nil.
func NewHandler(issuer DownloadIssuer, claimer FreeClaimer, entitlements EntitlementChecker, metrics *telemetry.CommerceMetrics, logger *slog.Logger) *Handler {
	return &Handler{
		issuer:       issuer,
		claimer:      claimer,
		entitlements: entitlements,
		metrics:      metrics,
		logger:       logger,
	}
}

// HandleDownload redirects an entitled caller to a short-lived file URL.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	identity, _ := auth.FromContext(r.Context())
	cred, err := h.issuer.Issue(r.Context(), identity.UserID, productID)
	if err != nil {
		status := statusFor(err)
		h.metrics.Download(r.Context(), outcomeFor(status))
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to issue download", "error", err, "product_id", productID)
			h.writeError(w, status, messageFor(status))
			return
		}
		h.writeError(w, status, clientMessage(err))
		return
	}

	h.metrics.Download(r.Context(), "issued")
	http.Redirect(w, r, cred.URL, http.StatusFound)
}

type claimResponse struct {
	Claimed bool `json:"claimed"`
}

func (h *Handler) HandleFreeClaim(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	identity, _ := auth.FromContext(r.Context())
	if err := h.claimer.Claim(r.Context(), identity, productID); err != nil {
		status := statusFor(err)
		h.metrics.FreeClaim(r.Context(), outcomeFor(status))
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to claim free product", "error", err, "product_id", productID)
			h.writeError(w, status, messageFor(status))
			return
		}
		h.writeError(w, status, clientMessage(err))
		return
	}

	h.metrics.FreeClaim(r.Context(), "claimed")
	h.writeJSON(w, http.StatusOK, claimResponse{Claimed: true})
}

type purchaseStatus struct {
	Authenticated bool `json:"authenticated"`
	HasPurchased  bool `json:"hasPurchased"`
}

// HandlePurchaseStatus always answers with the purchaseStatus shape. Any doubt
// about the lookup reports the product as not purchased.
func (h *Handler) HandlePurchaseStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	identity, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusOK, purchaseStatus{})
		return
	}

	productID := r.PathValue("productId")
	entitled, err := h.entitlements.HasEntitlement(r.Context(), identity.UserID, productID)
	if err != nil {
		h.logger.Error("failed to check purchase status", "error", err, "user_id", identity.UserID, "product_id", productID)
		h.writeJSON(w, http.StatusInternalServerError, purchaseStatus{Authenticated: true})
		return
	}

	h.writeJSON(w, http.StatusOK, purchaseStatus{Authenticated: true, HasPurchased: entitled})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func outcomeFor(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "rejected"
	case http.StatusConflict:
		return "conflict"
	default:
		return "failed"
	}
}

func messageFor(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "authentication required"
	case http.StatusForbidden:
		return "not entitled to this product"
	case http.StatusNotFound:
		return "not found"
	default:
		return "internal server error"
	}
}

// clientMessage exposes the sentinel text for errors the caller can act on.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return messageFor(http.StatusUnauthorized)
	case errors.Is(err, domain.ErrForbidden):
		return messageFor(http.StatusForbidden)
	case errors.Is(err, domain.ErrNoFile), errors.Is(err, domain.ErrNoFileAttached):
		return "product has no file attached"
	case errors.Is(err, domain.ErrProductNotFound):
		return "product not found"
	case errors.Is(err, domain.ErrNotFree):
		return "product is not free"
	default:
		return err.Error()
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
