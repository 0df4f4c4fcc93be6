package payment

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"ridefuture-be/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRoundTripper allows us to mock the HTTP response
type MockRoundTripper func(req *http.Request) *http.Response

func (f MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

type MockRoundTripperWithError func(req *http.Request) (*http.Response, error)

func (f MockRoundTripperWithError) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func newTestGateway(rt http.RoundTripper) *stripeGateway {
	gw := NewStripeGateway("sk_test_123", "https://stripe.test", nil).(*stripeGateway)
	gw.httpClient.Transport = rt
	return gw
}

func TestStripeGateway_CreateProduct(t *testing.T) {
	gw := newTestGateway(MockRoundTripper(func(req *http.Request) *http.Response {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "https://stripe.test/v1/products", req.URL.String())
		assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
		assert.NotEmpty(t, req.Header.Get("Idempotency-Key"))

		user, _, ok := req.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "sk_test_123", user)

		require.NoError(t, req.ParseForm())
		assert.Equal(t, "Urban Scooter", req.PostForm.Get("name"))
		assert.Equal(t, "https://shop.test/products/urban-scooter", req.PostForm.Get("url"))
		assert.Equal(t, "https://cdn.test/a.jpg", req.PostForm.Get("images[0]"))

		return jsonResponse(http.StatusOK, `{"id":"prod_1","object":"product"}`)
	}))

	id, err := gw.CreateProduct(context.Background(), ProductParams{
		Name:   "Urban Scooter",
		URL:    "https://shop.test/products/urban-scooter",
		Images: []string{"https://cdn.test/a.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, "prod_1", id)
}

func TestStripeGateway_CreatePrice(t *testing.T) {
	gw := newTestGateway(MockRoundTripper(func(req *http.Request) *http.Response {
		require.NoError(t, req.ParseForm())
		assert.Equal(t, "prod_1", req.PostForm.Get("product"))
		assert.Equal(t, "18000", req.PostForm.Get("unit_amount"))
		assert.Equal(t, "usd", req.PostForm.Get("currency"))
		return jsonResponse(http.StatusOK, `{"id":"price_1"}`)
	}))

	id, err := gw.CreatePrice(context.Background(), PriceParams{ProductID: "prod_1", UnitAmount: 18000, Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, "price_1", id)
}

func TestStripeGateway_CreateCheckoutSession(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		gw := newTestGateway(MockRoundTripper(func(req *http.Request) *http.Response {
			assert.Equal(t, "/v1/checkout/sessions", req.URL.Path)
			require.NoError(t, req.ParseForm())
			assert.Equal(t, "payment", req.PostForm.Get("mode"))
			assert.Equal(t, "cus_1", req.PostForm.Get("customer"))
			assert.Equal(t, "11", req.PostForm.Get("client_reference_id"))
			assert.Equal(t, "price_1", req.PostForm.Get("line_items[0][price]"))
			assert.Equal(t, "2", req.PostForm.Get("line_items[0][quantity]"))
			assert.Equal(t, "price_g", req.PostForm.Get("line_items[1][price]"))
			return jsonResponse(http.StatusOK, `{"id":"cs_1","url":"https://checkout.test/cs_1","status":"open","payment_status":"unpaid"}`)
		}))

		s, err := gw.CreateCheckoutSession(context.Background(), SessionParams{
			CustomerID:        "cus_1",
			LineItems:         []LineItem{{PriceRef: "price_1", Quantity: 2}, {PriceRef: "price_g", Quantity: 2}},
			SuccessURL:        "https://api.test/api/order-success/11/",
			CancelURL:         "https://api.test/api/order-cancel/11/",
			ClientReferenceID: "11",
		})
		require.NoError(t, err)
		assert.Equal(t, "cs_1", s.ID)
		assert.Equal(t, "https://checkout.test/cs_1", s.URL)
	})

	t.Run("API Error", func(t *testing.T) {
		gw := newTestGateway(MockRoundTripper(func(req *http.Request) *http.Response {
			return jsonResponse(http.StatusBadRequest, `{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such price"}}`)
		}))

		_, err := gw.CreateCheckoutSession(context.Background(), SessionParams{})

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, "resource_missing", apiErr.Code)
		assert.Contains(t, err.Error(), "No such price")
	})

	t.Run("Network Error", func(t *testing.T) {
		gw := newTestGateway(MockRoundTripperWithError(func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("connection reset")
		}))

		_, err := gw.CreateCheckoutSession(context.Background(), SessionParams{})
		assert.ErrorContains(t, err, "connection reset")
	})
}

func TestStripeGateway_GetCheckoutSession(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		gw := newTestGateway(MockRoundTripper(func(req *http.Request) *http.Response {
			assert.Equal(t, http.MethodGet, req.Method)
			assert.Equal(t, "/v1/checkout/sessions/cs_1", req.URL.Path)
			assert.Empty(t, req.Header.Get("Idempotency-Key"))
			return jsonResponse(http.StatusOK, `{"id":"cs_1","payment_status":"paid","client_reference_id":"11"}`)
		}))

		s, err := gw.GetCheckoutSession(context.Background(), "cs_1")
		require.NoError(t, err)
		assert.Equal(t, PaymentStatusPaid, s.PaymentStatus)
		assert.Equal(t, "11", s.ClientReferenceID)
	})

	t.Run("Non JSON Error Body", func(t *testing.T) {
		gw := newTestGateway(MockRoundTripper(func(req *http.Request) *http.Response {
			return jsonResponse(http.StatusBadGateway, `upstream unavailable`)
		}))

		_, err := gw.GetCheckoutSession(context.Background(), "cs_1")

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "upstream unavailable", apiErr.Message)
	})
}

func TestStripeGateway_RecordsLatency(t *testing.T) {
	reg := metrics.NewRegistry()
	gw := NewStripeGateway("sk_test_123", "https://stripe.test", reg).(*stripeGateway)
	gw.httpClient.Transport = MockRoundTripper(func(req *http.Request) *http.Response {
		time.Sleep(5 * time.Millisecond)
		return jsonResponse(http.StatusOK, `{"id":"cs_1","payment_status":"paid"}`)
	})

	_, err := gw.GetCheckoutSession(context.Background(), "cs_1")
	require.NoError(t, err)

	assert.Equal(t, uint64(1), reg.Counter("stripe_requests").Load())
	assert.GreaterOrEqual(t, reg.Counter("stripe_request_ms").Load(), uint64(5))
}

func TestToMinorUnits(t *testing.T) {
	tests := map[string]int64{
		"180":    18000,
		"19.99":  1999,
		"16.995": 1700,
		"0":      0,
	}
	for in, want := range tests {
		assert.Equal(t, want, ToMinorUnits(mustDecimal(in)), in)
	}
}
