package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ridefuture-be/internal/logger"
	"ridefuture-be/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultStripeBaseURL = "https://api.stripe.com"

type Gateway interface {
	CreateProduct(ctx context.Context, params ProductParams) (string, error)
	CreatePrice(ctx context.Context, params PriceParams) (string, error)
	CreateCustomer(ctx context.Context, params CustomerParams) (string, error)
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error)
	GetCheckoutSession(ctx context.Context, id string) (*Session, error)
}

type stripeGateway struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Registry
}

// ----------------- Constructor -----------------

func NewStripeGateway(secretKey, baseURL string, registry *metrics.Registry) Gateway {
	if secretKey == "" {
		logger.L().Warn("Stripe secret key is empty")
	}
	if baseURL == "" {
		baseURL = DefaultStripeBaseURL
	}
	if registry == nil {
		registry = metrics.NewRegistry()
	}

	return &stripeGateway{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		metrics: registry,
	}
}

// do sends a form-encoded request and decodes a successful JSON body into out.
// POSTs carry a fresh idempotency key.
func (s *stripeGateway) do(ctx context.Context, method, path string, form url.Values, out any) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "gateway"),
		zap.String("method", method),
		zap.String("path", path),
	)

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		log.Error("Failed creating request", zap.Error(err))
		return err
	}

	req.SetBasicAuth(s.secretKey, "")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	timer := metrics.StartTimer()
	resp, err := s.httpClient.Do(req)
	took := timer.Duration()
	s.metrics.Counter("stripe_requests").Inc()
	s.metrics.Counter("stripe_request_ms").Add(uint64(took.Milliseconds()))
	if err != nil {
		log.Error("Stripe request failed", zap.Duration("took", took), zap.Error(err))
		return err
	}
	defer resp.Body.Close()
	log.Debug("Stripe responded", zap.Int("http_status", resp.StatusCode), zap.Duration("took", took))

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", zap.Error(err))
		return fmt.Errorf("failed to read stripe response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error *APIError `json:"error"`
		}
		if json.Unmarshal(bodyBytes, &envelope) == nil && envelope.Error != nil {
			apiErr.Type = envelope.Error.Type
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		} else {
			apiErr.Message = string(bodyBytes)
		}
		log.Error("Stripe returned error",
			zap.Int("http_status", resp.StatusCode),
			zap.String("type", apiErr.Type),
			zap.String("message", apiErr.Message),
		)
		return apiErr
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		log.Error("Failed decoding Stripe response", zap.Error(err))
		return err
	}
	return nil
}

type objectID struct {
	ID string `json:"id"`
}

// ----------------- Catalog -----------------

func (s *stripeGateway) CreateProduct(ctx context.Context, params ProductParams) (string, error) {
	form := url.Values{}
	form.Set("name", params.Name)
	if params.Description != "" {
		form.Set("description", params.Description)
	}
	if params.URL != "" {
		form.Set("url", params.URL)
	}
	for i, img := range params.Images {
		form.Set(fmt.Sprintf("images[%d]", i), img)
	}

	var res objectID
	if err := s.do(ctx, http.MethodPost, "/v1/products", form, &res); err != nil {
		return "", err
	}

	logger.FromCtx(ctx).Info("Stripe product created", zap.String("product_id", res.ID), zap.String("name", params.Name))
	return res.ID, nil
}

func (s *stripeGateway) CreatePrice(ctx context.Context, params PriceParams) (string, error) {
	form := url.Values{}
	form.Set("product", params.ProductID)
	form.Set("unit_amount", strconv.FormatInt(params.UnitAmount, 10))
	form.Set("currency", strings.ToLower(params.Currency))

	var res objectID
	if err := s.do(ctx, http.MethodPost, "/v1/prices", form, &res); err != nil {
		return "", err
	}

	logger.FromCtx(ctx).Info("Stripe price created",
		zap.String("price_id", res.ID),
		zap.String("product_id", params.ProductID),
		zap.Int64("unit_amount", params.UnitAmount),
	)
	return res.ID, nil
}

// ----------------- Customers -----------------

func (s *stripeGateway) CreateCustomer(ctx context.Context, params CustomerParams) (string, error) {
	form := url.Values{}
	form.Set("email", params.Email)
	if params.Name != "" {
		form.Set("name", params.Name)
	}

	var res objectID
	if err := s.do(ctx, http.MethodPost, "/v1/customers", form, &res); err != nil {
		return "", err
	}
	return res.ID, nil
}

// ----------------- Checkout -----------------

func (s *stripeGateway) CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	if params.CustomerID != "" {
		form.Set("customer", params.CustomerID)
	}
	if params.ClientReferenceID != "" {
		form.Set("client_reference_id", params.ClientReferenceID)
	}
	for i, li := range params.LineItems {
		form.Set(fmt.Sprintf("line_items[%d][price]", i), li.PriceRef)
		form.Set(fmt.Sprintf("line_items[%d][quantity]", i), strconv.Itoa(li.Quantity))
	}

	var res Session
	if err := s.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, &res); err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("Stripe checkout session created",
		zap.String("session_id", res.ID),
		zap.String("client_reference_id", params.ClientReferenceID),
		zap.Int("line_items", len(params.LineItems)),
	)
	return &res, nil
}

func (s *stripeGateway) GetCheckoutSession(ctx context.Context, id string) (*Session, error) {
	var res Session
	if err := s.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(id), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
