package rest

import (
	"net/http"
	"strings"

	"ridefuture-be/internal/mailer"
	"ridefuture-be/internal/newsletter"
	"ridefuture-be/internal/utils"
)

type subscribeRequest struct {
	Email string `json:"email"`
}

// Subscribe handles POST /api/subscribe/.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sub, err := h.newsletter.Subscribe(r.Context(), req.Email)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, sub)
}

// Support handles POST /api/support/. Signed-in users may leave out the email.
func (h *Handler) Support(w http.ResponseWriter, r *http.Request) {
	var req mailer.SupportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		req.Email = utils.GetUserEmailFromContext(r.Context())
	}

	if err := h.support.Support(r.Context(), req); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Your message has been sent."})
}

// CreateNewsletter handles POST /api/admin/newsletters/. Delivery happens
// in the background dispatcher.
func (h *Handler) CreateNewsletter(w http.ResponseWriter, r *http.Request) {
	var input newsletter.CreateNewsletterInput
	if !decodeJSON(w, r, &input) {
		return
	}

	n, err := h.newsletter.CreateNewsletter(r.Context(), input)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusAccepted, n)
}

// NewsletterStats handles GET /api/admin/newsletters/stats/.
func (h *Handler) NewsletterStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.newsletter.DeliveryStats(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}
