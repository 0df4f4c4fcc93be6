package rest

import (
	"net/http"

	"ridefuture-be/internal/logger"
	"ridefuture-be/internal/order"
	"ridefuture-be/internal/user"
	"ridefuture-be/internal/utils"

	"go.uber.org/zap"
)

type tempPasswordRequest struct {
	Email        string `json:"email"`
	Code         string `json:"temp_password"`
	CaptchaToken string `json:"captcha_token"`
}

// GenerateTempPassword handles POST /api/auth/generate-temp-password/.
func (h *Handler) GenerateTempPassword(w http.ResponseWriter, r *http.Request) {
	var req tempPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.users.RequestCode(r.Context(), req.Email, req.CaptchaToken, remoteIP(r)); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Temporary password sent to your email."})
}

type loginResponse struct {
	Message string     `json:"message"`
	User    *user.User `json:"user"`
	Access  string     `json:"access"`
	Refresh string     `json:"refresh"`
}

// VerifyTempPassword handles POST /api/auth/verify-temp-password/.
func (h *Handler) VerifyTempPassword(w http.ResponseWriter, r *http.Request) {
	var req tempPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, tokens, err := h.users.VerifyCode(r.Context(), req.Email, req.Code)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, loginResponse{
		Message: "Login successful.",
		User:    u,
		Access:  tokens.Access,
		Refresh: tokens.Refresh,
	})
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshToken handles POST /api/token/refresh/.
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Refresh == "" {
		utils.WriteJSONFieldErrors(w, "validation failed", map[string]string{"refresh": "this field is required"}, http.StatusBadRequest)
		return
	}

	access, err := h.tokens.Refresh(req.Refresh)
	if err != nil {
		logger.FromCtx(r.Context()).Warn("refresh rejected", zap.Error(err))
		utils.WriteJSONError(w, "token is invalid or expired", http.StatusUnauthorized)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"access": access})
}

type profileResponse struct {
	User   *user.User     `json:"user"`
	Orders []*order.Order `json:"orders"`
}

// Profile handles GET /api/profile/.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	orders, err := h.orders.ListUserOrders(r.Context(), userID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if orders == nil {
		orders = []*order.Order{}
	}
	utils.WriteJSON(w, http.StatusOK, profileResponse{User: u, Orders: orders})
}

// UpdateProfile handles PUT /api/users/update/. Omitted fields are kept.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var input user.UpdateProfileInput
	if !decodeJSON(w, r, &input) {
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), userID, input)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, u)
}
