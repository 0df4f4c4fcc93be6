package callback

import (
	"context"
	"net/http"

	"ridefuture-be/internal/logger"
	"ridefuture-be/internal/order"
	"ridefuture-be/internal/utils"

	"go.uber.org/zap"
)

// OrderPayments is the part of the order service the payment redirects drive.
type OrderPayments interface {
	ConfirmPayment(ctx context.Context, id int64) (*order.Order, error)
	CancelPayment(ctx context.Context, id int64) error
}

// Handler serves the success and cancel URLs the hosted checkout redirects to.
type Handler struct {
	orders      OrderPayments
	frontendURL string
}

func NewHandler(orders OrderPayments, frontendURL string) *Handler {
	return &Handler{orders: orders, frontendURL: frontendURL}
}

func (h *Handler) finishedURL(success bool) string {
	if success {
		return h.frontendURL + "/finished?success=true"
	}
	return h.frontendURL + "/finished?success=false"
}

// Success handles GET /api/order-success/{id}/.
func (h *Handler) Success(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context()).With(zap.String("handler", "OrderSuccess"))

	id, ok := utils.ParseID(r.PathValue("id"))
	if !ok {
		utils.WriteJSONError(w, "order not found", http.StatusNotFound)
		return
	}

	if _, err := h.orders.ConfirmPayment(r.Context(), id); err != nil {
		log.Warn("payment confirmation failed", zap.Int64("order_id", id), zap.Error(err))
		utils.WriteError(w, err)
		return
	}

	http.Redirect(w, r, h.finishedURL(true), http.StatusFound)
}

// Cancel handles GET /api/order-cancel/{id}/.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context()).With(zap.String("handler", "OrderCancel"))

	id, ok := utils.ParseID(r.PathValue("id"))
	if !ok {
		utils.WriteJSONError(w, "order not found", http.StatusNotFound)
		return
	}

	if err := h.orders.CancelPayment(r.Context(), id); err != nil {
		log.Warn("payment cancel failed", zap.Int64("order_id", id), zap.Error(err))
		utils.WriteError(w, err)
		return
	}

	http.Redirect(w, r, h.finishedURL(false), http.StatusFound)
}
