package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ridefuture-be/internal/apperror"
	"ridefuture-be/internal/auth"
	"ridefuture-be/internal/category"
	"ridefuture-be/internal/logger"
	"ridefuture-be/internal/mailer"
	"ridefuture-be/internal/metrics"
	"ridefuture-be/internal/newsletter"
	"ridefuture-be/internal/order"
	"ridefuture-be/internal/product"
	"ridefuture-be/internal/user"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---
// Each mock embeds the service interface so only the methods a test uses
// need an implementation.

type MockProducts struct {
	mock.Mock
	product.Service
}

func (m *MockProducts) ListProducts(ctx context.Context, filter product.ListFilter) (*product.ListResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.ListResult), args.Error(1)
}

func (m *MockProducts) GetProduct(ctx context.Context, slug string) (*product.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProducts) SimilarProducts(ctx context.Context, slug string, limit, offset int) (*product.ListResult, error) {
	args := m.Called(ctx, slug, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.ListResult), args.Error(1)
}

func (m *MockProducts) ProductsByCategory(ctx context.Context, ids []int64) (map[int64][]*product.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(map[int64][]*product.Product), args.Error(1)
}

func (m *MockProducts) CreateComment(ctx context.Context, userID int64, input product.CreateCommentInput) (*product.Comment, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Comment), args.Error(1)
}

func (m *MockProducts) DeleteProduct(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockProducts) UploadGalleryImage(ctx context.Context, productID int64, filename, caption string, r io.Reader) (*product.GalleryImage, error) {
	args := m.Called(ctx, productID, filename, caption)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.GalleryImage), args.Error(1)
}

type MockCategories struct {
	mock.Mock
	category.Service
}

func (m *MockCategories) ListCategories(ctx context.Context) ([]*category.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*category.Category), args.Error(1)
}

type MockOrders struct {
	mock.Mock
	order.Service
}

func (m *MockOrders) CreateOrder(ctx context.Context, input order.CreateOrderInput) (*order.CreateOrderResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.CreateOrderResult), args.Error(1)
}

func (m *MockOrders) GetOrder(ctx context.Context, id, viewerID int64, viewerIsStaff bool) (*order.Order, error) {
	args := m.Called(ctx, id, viewerID, viewerIsStaff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrders) ListUserOrders(ctx context.Context, userID int64) ([]*order.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrders) UpdateStatus(ctx context.Context, id int64, next order.Status) (*order.Order, error) {
	args := m.Called(ctx, id, next)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrders) RemoveItem(ctx context.Context, itemID int64) error {
	return m.Called(ctx, itemID).Error(0)
}

type MockUsers struct {
	mock.Mock
	user.Service
}

func (m *MockUsers) RequestCode(ctx context.Context, email, captchaToken, remoteIP string) error {
	return m.Called(ctx, email, captchaToken, remoteIP).Error(0)
}

func (m *MockUsers) VerifyCode(ctx context.Context, email, code string) (*user.User, auth.TokenPair, error) {
	args := m.Called(ctx, email, code)
	if args.Get(0) == nil {
		return nil, auth.TokenPair{}, args.Error(2)
	}
	return args.Get(0).(*user.User), args.Get(1).(auth.TokenPair), args.Error(2)
}

func (m *MockUsers) GetByID(ctx context.Context, id int64) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

type MockNewsletter struct {
	mock.Mock
	newsletter.Service
}

func (m *MockNewsletter) Subscribe(ctx context.Context, email string) (*newsletter.Subscriber, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*newsletter.Subscriber), args.Error(1)
}

func (m *MockNewsletter) CreateNewsletter(ctx context.Context, input newsletter.CreateNewsletterInput) (*newsletter.Newsletter, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*newsletter.Newsletter), args.Error(1)
}

type MockSupport struct {
	mock.Mock
}

func (m *MockSupport) Support(ctx context.Context, req mailer.SupportRequest) error {
	return m.Called(ctx, req).Error(0)
}

// --- Helpers ---

type testEnv struct {
	products   *MockProducts
	categories *MockCategories
	orders     *MockOrders
	users      *MockUsers
	newsletter *MockNewsletter
	support    *MockSupport
	tokens     *auth.Manager
	metrics    *metrics.Registry
	router     http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		products:   new(MockProducts),
		categories: new(MockCategories),
		orders:     new(MockOrders),
		users:      new(MockUsers),
		newsletter: new(MockNewsletter),
		support:    new(MockSupport),
		tokens:     auth.NewManager("test-secret"),
		metrics:    metrics.NewRegistry(),
	}
	env.router = NewRouter(Deps{
		Products:           env.products,
		Categories:         env.categories,
		Orders:             env.orders,
		Users:              env.users,
		Newsletter:         env.newsletter,
		Support:            env.support,
		Tokens:             env.tokens,
		Metrics:            env.metrics,
		CORSAllowedOrigins: []string{"https://shop.test"},
	})
	return env
}

func (e *testEnv) token(t *testing.T, userID int64, staff bool) string {
	t.Helper()
	pair, err := e.tokens.IssuePair(userID, "jane@example.com", staff)
	require.NoError(t, err)
	return pair.Access
}

func (e *testEnv) do(method, target, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

// --- Tests ---

func TestRouter_Health(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(logger.RequestIDHeader))
}

func TestRouter_Middleware(t *testing.T) {
	env := newTestEnv(t)

	t.Run("Invalid Token Rejected", func(t *testing.T) {
		rr := env.do(http.MethodGet, "/health", "", "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("CORS Preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/orders/", nil)
		req.Header.Set("Origin", "https://shop.test")
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "https://shop.test", rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Request ID Propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(logger.RequestIDHeader, "req-42")
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		assert.Equal(t, "req-42", rr.Header().Get(logger.RequestIDHeader))
	})
}

func TestRouter_ListProducts(t *testing.T) {
	t.Run("Envelope And Filters", func(t *testing.T) {
		env := newTestEnv(t)
		minPrice := decimal.NewFromInt(100)
		featured := true

		env.products.On("ListProducts", mock.Anything, product.ListFilter{
			CategorySlug: "scooters",
			Featured:     &featured,
			MinPrice:     &minPrice,
			Search:       "urban",
			Ordering:     product.OrderPriceDesc,
			Limit:        2,
			Offset:       2,
		}).Return(&product.ListResult{
			Items: []*product.Product{{ID: 3, Name: "Urban Scooter"}},
			Total: 5,
		}, nil)

		rr := env.do(http.MethodGet, "/api/products/?category=scooters&featured=true&min_price=100&search=urban&ordering=-price&page=2&page_size=2", "", "")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		body := decodeBody(t, rr)
		assert.EqualValues(t, 5, body["count"])
		assert.EqualValues(t, 3, body["total_pages"])
		assert.EqualValues(t, 2, body["current_page"])
		links := body["links"].(map[string]any)
		assert.Contains(t, links["next"], "page=3")
		assert.Contains(t, links["previous"], "page=1")
		assert.Len(t, body["results"], 1)
	})

	t.Run("Invalid Price", func(t *testing.T) {
		env := newTestEnv(t)

		rr := env.do(http.MethodGet, "/api/products/?max_price=cheap", "", "")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "max_price")
		env.products.AssertNotCalled(t, "ListProducts", mock.Anything, mock.Anything)
	})

	t.Run("Page Out Of Range", func(t *testing.T) {
		env := newTestEnv(t)
		env.products.On("ListProducts", mock.Anything, mock.Anything).
			Return(&product.ListResult{Items: nil, Total: 3}, nil)

		rr := env.do(http.MethodGet, "/api/products/?page=9", "", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestRouter_ProductDetail(t *testing.T) {
	env := newTestEnv(t)
	env.products.On("GetProduct", mock.Anything, "urban-scooter").Return(&product.Product{ID: 1, Slug: "urban-scooter"}, nil)
	env.products.On("GetProduct", mock.Anything, "missing").Return(nil, apperror.NotFound("product not found"))
	env.products.On("SimilarProducts", mock.Anything, "urban-scooter", 50, 0).
		Return(&product.ListResult{Items: []*product.Product{{ID: 2}}, Total: 1}, nil)

	rr := env.do(http.MethodGet, "/api/products/urban-scooter/", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(http.MethodGet, "/api/products/missing/", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "product not found", decodeBody(t, rr)["error"])

	rr = env.do(http.MethodGet, "/api/products/urban-scooter/similar/", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 1, decodeBody(t, rr)["count"])
}

func TestRouter_ListCategories(t *testing.T) {
	env := newTestEnv(t)
	env.categories.On("ListCategories", mock.Anything).Return([]*category.Category{
		{ID: 1, Name: "Scooters", Slug: "scooters"},
		{ID: 2, Name: "Helmets", Slug: "helmets"},
	}, nil)
	env.products.On("ProductsByCategory", mock.Anything, []int64{1, 2}).Return(map[int64][]*product.Product{
		1: {{ID: 10, Name: "Urban Scooter"}},
	}, nil)

	rr := env.do(http.MethodGet, "/api/categories/", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "scooters", out[0]["slug"])
	assert.Len(t, out[0]["products"], 1)
	assert.Len(t, out[1]["products"], 0)
}

func TestRouter_CreateComment(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/comments/", `{"product":1,"rating":5,"comment":"great"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	env.products.On("CreateComment", mock.Anything, int64(7), product.CreateCommentInput{ProductID: 1, Rating: 5, Comment: "great"}).
		Return(&product.Comment{ID: 1, Rating: 5}, nil)

	rr = env.do(http.MethodPost, "/api/comments/", `{"product":1,"rating":5,"comment":"great"}`, env.token(t, 7, false))
	assert.Equal(t, http.StatusCreated, rr.Code)
	env.products.AssertExpectations(t)
}

func TestRouter_Orders(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		env := newTestEnv(t)
		env.orders.On("CreateOrder", mock.Anything, mock.MatchedBy(func(in order.CreateOrderInput) bool {
			return in.Email == "jane@example.com" && len(in.Items) == 1 && in.Items[0].Quantity == 2
		})).Return(&order.CreateOrderResult{
			Order:       &order.Order{ID: 11, Status: order.StatusPending},
			CheckoutURL: "https://checkout.test/cs_1",
			TokenPair:   auth.TokenPair{Access: "a", Refresh: "r"},
		}, nil)

		rr := env.do(http.MethodPost, "/api/orders/", `{"email":"jane@example.com","items":[{"product_id":1,"quantity":2}]}`, "")
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		body := decodeBody(t, rr)
		assert.EqualValues(t, 11, body["id"])
		assert.Equal(t, "https://checkout.test/cs_1", body["checkout_url"])
		assert.Equal(t, "a", body["access"])
	})

	t.Run("Create Upstream Failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.orders.On("CreateOrder", mock.Anything, mock.Anything).
			Return(nil, apperror.Upstream("payment", errors.New("timeout")))

		rr := env.do(http.MethodPost, "/api/orders/", `{"email":"jane@example.com"}`, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Malformed Body", func(t *testing.T) {
		env := newTestEnv(t)
		rr := env.do(http.MethodPost, "/api/orders/", `{"email":`, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Get Requires Login", func(t *testing.T) {
		env := newTestEnv(t)
		rr := env.do(http.MethodGet, "/api/orders/11/", "", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Get As Owner", func(t *testing.T) {
		env := newTestEnv(t)
		env.orders.On("GetOrder", mock.Anything, int64(11), int64(7), false).Return(&order.Order{ID: 11}, nil)

		rr := env.do(http.MethodGet, "/api/orders/11/", "", env.token(t, 7, false))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Get As Stranger", func(t *testing.T) {
		env := newTestEnv(t)
		env.orders.On("GetOrder", mock.Anything, int64(11), int64(8), false).Return(nil, order.ErrForbidden)

		rr := env.do(http.MethodGet, "/api/orders/11/", "", env.token(t, 8, false))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("Bad Id", func(t *testing.T) {
		env := newTestEnv(t)
		rr := env.do(http.MethodGet, "/api/orders/abc/", "", env.token(t, 7, false))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestRouter_AdminOrders(t *testing.T) {
	t.Run("Forbidden For Customers", func(t *testing.T) {
		env := newTestEnv(t)
		rr := env.do(http.MethodPatch, "/api/admin/orders/11/status/", `{"status":"processing"}`, env.token(t, 7, false))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("Update Status", func(t *testing.T) {
		env := newTestEnv(t)
		env.orders.On("UpdateStatus", mock.Anything, int64(11), order.StatusProcessing).
			Return(&order.Order{ID: 11, Status: order.StatusProcessing}, nil)

		rr := env.do(http.MethodPatch, "/api/admin/orders/11/status/", `{"status":"processing"}`, env.token(t, 1, true))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "processing", decodeBody(t, rr)["status"])
	})

	t.Run("Invalid Transition", func(t *testing.T) {
		env := newTestEnv(t)
		env.orders.On("UpdateStatus", mock.Anything, int64(11), order.StatusDelivered).Return(nil, order.ErrInvalidTransition)

		rr := env.do(http.MethodPatch, "/api/admin/orders/11/status/", `{"status":"delivered"}`, env.token(t, 1, true))
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("Remove Item", func(t *testing.T) {
		env := newTestEnv(t)
		env.orders.On("RemoveItem", mock.Anything, int64(5)).Return(nil)

		rr := env.do(http.MethodDelete, "/api/admin/order-items/5/", "", env.token(t, 1, true))
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestRouter_Auth(t *testing.T) {
	t.Run("Generate Code", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.On("RequestCode", mock.Anything, "jane@example.com", "captcha-ok", "192.0.2.1").Return(nil)

		rr := env.do(http.MethodPost, "/api/auth/generate-temp-password/", `{"email":"jane@example.com","captcha_token":"captcha-ok"}`, "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Temporary password sent to your email.", decodeBody(t, rr)["message"])
	})

	t.Run("Verify Code", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.On("VerifyCode", mock.Anything, "jane@example.com", "123456").
			Return(&user.User{ID: 7, Email: "jane@example.com"}, auth.TokenPair{Access: "a", Refresh: "r"}, nil)

		rr := env.do(http.MethodPost, "/api/auth/verify-temp-password/", `{"email":"jane@example.com","temp_password":"123456"}`, "")
		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "Login successful.", body["message"])
		assert.Equal(t, "r", body["refresh"])
	})

	t.Run("Verify Wrong Code", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.On("VerifyCode", mock.Anything, "jane@example.com", "000000").Return(nil, nil, user.ErrInvalidCode)

		rr := env.do(http.MethodPost, "/api/auth/verify-temp-password/", `{"email":"jane@example.com","temp_password":"000000"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Refresh", func(t *testing.T) {
		env := newTestEnv(t)
		pair, err := env.tokens.IssuePair(7, "jane@example.com", false)
		require.NoError(t, err)

		rr := env.do(http.MethodPost, "/api/token/refresh/", `{"refresh":"`+pair.Refresh+`"}`, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.NotEmpty(t, decodeBody(t, rr)["access"])

		rr = env.do(http.MethodPost, "/api/token/refresh/", `{"refresh":"`+pair.Access+`"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRouter_Profile(t *testing.T) {
	env := newTestEnv(t)
	env.users.On("GetByID", mock.Anything, int64(7)).Return(&user.User{ID: 7, Email: "jane@example.com"}, nil)
	env.orders.On("ListUserOrders", mock.Anything, int64(7)).Return(nil, nil)

	rr := env.do(http.MethodGet, "/api/profile/", "", env.token(t, 7, false))
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	assert.Equal(t, "jane@example.com", body["user"].(map[string]any)["email"])
	assert.Equal(t, []any{}, body["orders"])
}

func TestRouter_Contact(t *testing.T) {
	t.Run("Subscribe", func(t *testing.T) {
		env := newTestEnv(t)
		env.newsletter.On("Subscribe", mock.Anything, "jane@example.com").Return(&newsletter.Subscriber{ID: 1, Email: "jane@example.com"}, nil)

		rr := env.do(http.MethodPost, "/api/subscribe/", `{"email":"jane@example.com"}`, "")
		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("Subscribe Duplicate", func(t *testing.T) {
		env := newTestEnv(t)
		env.newsletter.On("Subscribe", mock.Anything, "jane@example.com").Return(nil, newsletter.ErrAlreadySubscribed)

		rr := env.do(http.MethodPost, "/api/subscribe/", `{"email":"jane@example.com"}`, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "already subscribed")
	})

	t.Run("Support", func(t *testing.T) {
		env := newTestEnv(t)
		env.support.On("Support", mock.Anything, mailer.SupportRequest{Name: "Jane", Email: "jane@example.com", Message: "help"}).Return(nil)

		rr := env.do(http.MethodPost, "/api/support/", `{"name":"Jane","email":"jane@example.com","message":"help"}`, "")
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Support Uses Account Email", func(t *testing.T) {
		env := newTestEnv(t)
		env.support.On("Support", mock.Anything, mailer.SupportRequest{Name: "Jane", Email: "jane@example.com", Message: "help"}).Return(nil)

		rr := env.do(http.MethodPost, "/api/support/", `{"name":"Jane","message":"help"}`, env.token(t, 7, false))
		assert.Equal(t, http.StatusOK, rr.Code)
		env.support.AssertExpectations(t)
	})

	t.Run("Newsletter Is Staff Only", func(t *testing.T) {
		env := newTestEnv(t)
		rr := env.do(http.MethodPost, "/api/admin/newsletters/", `{"subject":"s","message":"m"}`, env.token(t, 7, false))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("Newsletter Queued", func(t *testing.T) {
		env := newTestEnv(t)
		env.newsletter.On("CreateNewsletter", mock.Anything, newsletter.CreateNewsletterInput{Subject: "s", Message: "m"}).
			Return(&newsletter.Newsletter{ID: 3, Recipients: 12}, nil)

		rr := env.do(http.MethodPost, "/api/admin/newsletters/", `{"subject":"s","message":"m"}`, env.token(t, 1, true))
		assert.Equal(t, http.StatusAccepted, rr.Code)
		assert.EqualValues(t, 12, decodeBody(t, rr)["recipients"])
	})
}

func TestRouter_AdminCatalog(t *testing.T) {
	t.Run("Delete Product", func(t *testing.T) {
		env := newTestEnv(t)
		env.products.On("DeleteProduct", mock.Anything, int64(4)).Return(nil)

		rr := env.do(http.MethodDelete, "/api/admin/products/4/", "", env.token(t, 1, true))
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("Upload Gallery Image", func(t *testing.T) {
		env := newTestEnv(t)
		env.products.On("UploadGalleryImage", mock.Anything, int64(4), "a.jpg", "front").
			Return(&product.GalleryImage{ID: 9}, nil)

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("image", "a.jpg")
		require.NoError(t, err)
		fw.Write([]byte("jpeg-bytes"))
		require.NoError(t, mw.WriteField("caption", "front"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/admin/products/4/gallery/", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+env.token(t, 1, true))
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	})

	t.Run("Metrics", func(t *testing.T) {
		env := newTestEnv(t)
		env.metrics.Counter("orders_created").Add(3)

		rr := env.do(http.MethodGet, "/api/admin/metrics/", "", env.token(t, 1, true))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.EqualValues(t, 3, decodeBody(t, rr)["orders_created"])
	})
}
