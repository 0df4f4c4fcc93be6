package rest

import (
	"context"
	"net/http"

	"ridefuture-be/internal/auth"
	"ridefuture-be/internal/category"
	"ridefuture-be/internal/logger"
	"ridefuture-be/internal/mailer"
	"ridefuture-be/internal/metrics"
	"ridefuture-be/internal/middleware"
	"ridefuture-be/internal/newsletter"
	"ridefuture-be/internal/order"
	"ridefuture-be/internal/payment/callback"
	"ridefuture-be/internal/product"
	"ridefuture-be/internal/user"
	"ridefuture-be/internal/utils"
)

// SupportMailer forwards help requests from the contact form.
type SupportMailer interface {
	Support(ctx context.Context, req mailer.SupportRequest) error
}

type Deps struct {
	Products   product.Service
	Categories category.Service
	Orders     order.Service
	Users      user.Service
	Newsletter newsletter.Service
	Support    SupportMailer
	Tokens     *auth.Manager
	Payments   *callback.Handler
	Limiter    *middleware.RateLimiter
	Metrics    *metrics.Registry

	MediaRoot          string
	CORSAllowedOrigins []string
}

type Handler struct {
	products   product.Service
	categories category.Service
	orders     order.Service
	users      user.Service
	newsletter newsletter.Service
	support    SupportMailer
	tokens     *auth.Manager
	metrics    *metrics.Registry
}

// NewRouter registers every route and wraps the mux in the middleware chain.
func NewRouter(d Deps) http.Handler {
	if d.Metrics == nil {
		d.Metrics = metrics.NewRegistry()
	}
	h := &Handler{
		products:   d.Products,
		categories: d.Categories,
		orders:     d.Orders,
		users:      d.Users,
		newsletter: d.Newsletter,
		support:    d.Support,
		tokens:     d.Tokens,
		metrics:    d.Metrics,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	if d.MediaRoot != "" {
		mux.Handle("GET /media/", http.StripPrefix("/media/", http.FileServer(http.Dir(d.MediaRoot))))
	}

	// catalog
	mux.HandleFunc("GET /api/products/{$}", h.ListProducts)
	mux.HandleFunc("GET /api/products/{slug}/{$}", h.GetProduct)
	mux.HandleFunc("GET /api/products/{slug}/similar/{$}", h.SimilarProducts)
	mux.HandleFunc("GET /api/categories/{$}", h.ListCategories)
	mux.HandleFunc("GET /api/categories/{slug}/{$}", h.GetCategory)
	mux.HandleFunc("POST /api/comments/{$}", middleware.RequireAuth(h.CreateComment))

	// orders and payment redirects
	mux.HandleFunc("POST /api/orders/{$}", h.CreateOrder)
	mux.HandleFunc("GET /api/orders/{id}/{$}", middleware.RequireAuth(h.GetOrder))
	if d.Payments != nil {
		mux.HandleFunc("GET /api/order-success/{id}/{$}", d.Payments.Success)
		mux.HandleFunc("GET /api/order-cancel/{id}/{$}", d.Payments.Cancel)
	}

	// account
	mux.HandleFunc("POST /api/auth/generate-temp-password/{$}", h.GenerateTempPassword)
	mux.HandleFunc("POST /api/auth/verify-temp-password/{$}", h.VerifyTempPassword)
	mux.HandleFunc("POST /api/token/refresh/{$}", h.RefreshToken)
	mux.HandleFunc("GET /api/profile/{$}", middleware.RequireAuth(h.Profile))
	mux.HandleFunc("PUT /api/users/update/{$}", middleware.RequireAuth(h.UpdateProfile))

	// contact
	mux.HandleFunc("POST /api/subscribe/{$}", h.Subscribe)
	mux.HandleFunc("POST /api/support/{$}", h.Support)

	// staff
	mux.HandleFunc("POST /api/admin/categories/{$}", middleware.RequireStaff(h.CreateCategory))
	mux.HandleFunc("POST /api/admin/characteristic-types/{$}", middleware.RequireStaff(h.CreateCharacteristicType))
	mux.HandleFunc("POST /api/admin/products/{$}", middleware.RequireStaff(h.CreateProduct))
	mux.HandleFunc("PUT /api/admin/products/{id}/{$}", middleware.RequireStaff(h.UpdateProduct))
	mux.HandleFunc("DELETE /api/admin/products/{id}/{$}", middleware.RequireStaff(h.DeleteProduct))
	mux.HandleFunc("POST /api/admin/products/{id}/characteristics/{$}", middleware.RequireStaff(h.AddCharacteristic))
	mux.HandleFunc("POST /api/admin/products/{id}/gallery/{$}", middleware.RequireStaff(h.UploadGalleryImage))
	mux.HandleFunc("DELETE /api/admin/gallery/{id}/{$}", middleware.RequireStaff(h.DeleteGalleryImage))

	mux.HandleFunc("GET /api/admin/orders/{$}", middleware.RequireStaff(h.ListOrders))
	mux.HandleFunc("PATCH /api/admin/orders/{id}/status/{$}", middleware.RequireStaff(h.UpdateOrderStatus))
	mux.HandleFunc("POST /api/admin/orders/{id}/items/{$}", middleware.RequireStaff(h.AddOrderItem))
	mux.HandleFunc("PUT /api/admin/order-items/{id}/{$}", middleware.RequireStaff(h.UpdateOrderItem))
	mux.HandleFunc("DELETE /api/admin/order-items/{id}/{$}", middleware.RequireStaff(h.RemoveOrderItem))

	mux.HandleFunc("POST /api/admin/newsletters/{$}", middleware.RequireStaff(h.CreateNewsletter))
	mux.HandleFunc("GET /api/admin/newsletters/stats/{$}", middleware.RequireStaff(h.NewsletterStats))
	mux.HandleFunc("GET /api/admin/metrics/{$}", middleware.RequireStaff(h.Metrics))

	var handler http.Handler = mux
	if d.Limiter != nil {
		handler = d.Limiter.Middleware(handler)
	}
	handler = middleware.CORS(d.CORSAllowedOrigins)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.AuthMiddleware(d.Tokens)(handler)
	handler = logger.RequestIDMiddleware(handler)

	return handler
}

// Metrics handles GET /api/admin/metrics/.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, h.metrics.Snapshot())
}
