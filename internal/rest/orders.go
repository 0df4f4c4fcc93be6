package rest

import (
	"net/http"
	"strconv"

	"ridefuture-be/internal/order"
	"ridefuture-be/internal/utils"
)

// CreateOrder handles POST /api/orders/. The response carries the hosted
// checkout URL and a token pair for the (possibly new) customer account.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var input order.CreateOrderInput
	if !decodeJSON(w, r, &input) {
		return
	}

	res, err := h.orders.CreateOrder(r.Context(), input)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, res)
}

// GetOrder handles GET /api/orders/{id}/ for the owner or staff.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "order")
	if !ok {
		return
	}
	userID, _ := utils.GetUserIDFromContext(r.Context())

	o, err := h.orders.GetOrder(r.Context(), id, userID, utils.IsStaffFromContext(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}

// ListOrders handles GET /api/admin/orders/?status=&user_id=&limit=.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter order.ListFilter
	if s := q.Get("status"); s != "" {
		status := order.Status(s)
		filter.Status = &status
	}
	if v, err := strconv.ParseInt(q.Get("user_id"), 10, 64); err == nil {
		filter.UserID = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		filter.Limit = v
	}

	orders, err := h.orders.ListOrders(r.Context(), filter)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if orders == nil {
		orders = []*order.Order{}
	}
	utils.WriteJSON(w, http.StatusOK, orders)
}

type updateStatusRequest struct {
	Status order.Status `json:"status"`
}

// UpdateOrderStatus handles PATCH /api/admin/orders/{id}/status/.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "order")
	if !ok {
		return
	}

	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}

// AddOrderItem handles POST /api/admin/orders/{id}/items/.
func (h *Handler) AddOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "order")
	if !ok {
		return
	}

	var input order.ItemInput
	if !decodeJSON(w, r, &input) {
		return
	}

	item, err := h.orders.AddItem(r.Context(), id, input)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, item)
}

// UpdateOrderItem handles PUT /api/admin/order-items/{id}/.
func (h *Handler) UpdateOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "order item")
	if !ok {
		return
	}

	var input order.UpdateItemInput
	if !decodeJSON(w, r, &input) {
		return
	}

	item, err := h.orders.UpdateItem(r.Context(), id, input)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, item)
}

// RemoveOrderItem handles DELETE /api/admin/order-items/{id}/.
func (h *Handler) RemoveOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "order item")
	if !ok {
		return
	}

	if err := h.orders.RemoveItem(r.Context(), id); err != nil {
		utils.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
