package payment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"ridefuture-be/internal/apperror"
	"ridefuture-be/internal/logger"
	"ridefuture-be/internal/metrics"
	"ridefuture-be/internal/order"
	"ridefuture-be/internal/product"
	"ridefuture-be/internal/user"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CustomerStore interface {
	SetPaymentCustomerRef(ctx context.Context, id int64, ref string) error
}

type ProductSource interface {
	GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]*product.Product, error)
}

type BridgeConfig struct {
	SiteURL         string
	FrontendSiteURL string
	Currency        string
	GuaranteeFee    decimal.Decimal
}

// Bridge turns local orders into hosted checkout sessions, creating remote
// products, prices and customers on first use.
type Bridge struct {
	gateway   Gateway
	refs      Repository
	customers CustomerStore
	products  ProductSource
	cfg       BridgeConfig
	metrics   *metrics.Registry
}

func NewBridge(gateway Gateway, refs Repository, customers CustomerStore, products ProductSource, cfg BridgeConfig, registry *metrics.Registry) *Bridge {
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")
	cfg.FrontendSiteURL = strings.TrimRight(cfg.FrontendSiteURL, "/")
	return &Bridge{
		gateway:   gateway,
		refs:      refs,
		customers: customers,
		products:  products,
		cfg:       cfg,
		metrics:   registry,
	}
}

func (b *Bridge) upstream(err error) error {
	b.metrics.Counter("payment_upstream_errors").Inc()
	return apperror.Upstream("stripe", err)
}

// remoteProduct returns the remote product id for localKey, creating it when missing.
func (b *Bridge) remoteProduct(ctx context.Context, localKey string, params ProductParams) (string, error) {
	id, ok, err := b.refs.GetProductRef(ctx, localKey)
	if err != nil {
		return "", err
	}
	if ok {
		return id, nil
	}

	id, err = b.gateway.CreateProduct(ctx, params)
	if err != nil {
		return "", b.upstream(err)
	}
	b.metrics.Counter("payment_products_created").Inc()
	return b.refs.SaveProductRef(ctx, localKey, id)
}

func (b *Bridge) remotePrice(ctx context.Context, remoteProductID string, amount decimal.Decimal) (string, error) {
	minor := ToMinorUnits(amount)

	id, ok, err := b.refs.GetPriceRef(ctx, remoteProductID, minor, b.cfg.Currency)
	if err != nil {
		return "", err
	}
	if ok {
		return id, nil
	}

	id, err = b.gateway.CreatePrice(ctx, PriceParams{ProductID: remoteProductID, UnitAmount: minor, Currency: b.cfg.Currency})
	if err != nil {
		return "", b.upstream(err)
	}
	b.metrics.Counter("payment_prices_created").Inc()
	return b.refs.SavePriceRef(ctx, remoteProductID, minor, b.cfg.Currency, id)
}

func (b *Bridge) productParams(p *product.Product) ProductParams {
	params := ProductParams{
		Name:        p.Name,
		Description: p.Description,
		URL:         fmt.Sprintf("%s/products/%s", b.cfg.FrontendSiteURL, p.Slug),
	}
	if len(p.Gallery) > 0 && p.Gallery[0].Image != "" {
		params.Images = []string{p.Gallery[0].Image}
	}
	return params
}

// BuildLineItems resolves one priced line per item, plus a guarantee line for
// items that selected the long term guarantee. Any remote failure aborts.
func (b *Bridge) BuildLineItems(ctx context.Context, o *order.Order) ([]LineItem, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "payment"),
		zap.String("method", "BuildLineItems"),
		zap.Int64("order_id", o.ID),
	)

	ids := make([]int64, 0, len(o.Items))
	for _, it := range o.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := b.products.GetProductsByIDs(ctx, ids)
	if err != nil {
		log.Error("failed to load products", zap.Error(err))
		return nil, err
	}

	lines := make([]LineItem, 0, len(o.Items))
	for _, it := range o.Items {
		p, ok := products[it.ProductID]
		if !ok {
			log.Error("order references missing product", zap.Int64("product_id", it.ProductID))
			return nil, fmt.Errorf("product %d not found", it.ProductID)
		}

		remoteID, err := b.remoteProduct(ctx, ProductKey(p.ID), b.productParams(p))
		if err != nil {
			log.Error("failed to resolve remote product", zap.Int64("product_id", p.ID), zap.Error(err))
			return nil, err
		}
		priceID, err := b.remotePrice(ctx, remoteID, product.DiscountedPrice(p.Price, p.DiscountPercentage))
		if err != nil {
			log.Error("failed to resolve remote price", zap.Int64("product_id", p.ID), zap.Error(err))
			return nil, err
		}
		lines = append(lines, LineItem{PriceRef: priceID, Quantity: it.Quantity})

		if !it.LongTermGuaranteeSelected {
			continue
		}

		guaranteeID, err := b.remoteProduct(ctx, GuaranteeKey(p.ID), ProductParams{
			Name:        GuaranteeName(p.Name),
			Description: fmt.Sprintf("Extended 24 month guarantee for %s", p.Name),
		})
		if err != nil {
			log.Error("failed to resolve guarantee product", zap.Int64("product_id", p.ID), zap.Error(err))
			return nil, err
		}
		guaranteePrice, err := b.remotePrice(ctx, guaranteeID, b.cfg.GuaranteeFee)
		if err != nil {
			log.Error("failed to resolve guarantee price", zap.Int64("product_id", p.ID), zap.Error(err))
			return nil, err
		}
		lines = append(lines, LineItem{PriceRef: guaranteePrice, Quantity: it.Quantity})
	}

	return lines, nil
}

// GetOrCreateCustomer reuses the stored customer reference or creates one.
func (b *Bridge) GetOrCreateCustomer(ctx context.Context, u *user.User) (string, error) {
	if u.PaymentCustomerRef != nil && *u.PaymentCustomerRef != "" {
		return *u.PaymentCustomerRef, nil
	}

	ref, err := b.gateway.CreateCustomer(ctx, CustomerParams{Email: u.Email, Name: u.FullName()})
	if err != nil {
		return "", b.upstream(err)
	}
	if err := b.customers.SetPaymentCustomerRef(ctx, u.ID, ref); err != nil {
		return "", err
	}
	u.PaymentCustomerRef = &ref
	return ref, nil
}

func (b *Bridge) CreateCheckout(ctx context.Context, o *order.Order, u *user.User) (*order.CheckoutSession, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "payment"),
		zap.String("method", "CreateCheckout"),
		zap.Int64("order_id", o.ID),
	)

	customer, err := b.GetOrCreateCustomer(ctx, u)
	if err != nil {
		log.Error("failed to resolve customer", zap.Error(err))
		return nil, err
	}

	lines, err := b.BuildLineItems(ctx, o)
	if err != nil {
		return nil, err
	}

	session, err := b.gateway.CreateCheckoutSession(ctx, SessionParams{
		CustomerID:        customer,
		LineItems:         lines,
		SuccessURL:        fmt.Sprintf("%s/api/order-success/%d/", b.cfg.SiteURL, o.ID),
		CancelURL:         fmt.Sprintf("%s/api/order-cancel/%d/", b.cfg.SiteURL, o.ID),
		ClientReferenceID: strconv.FormatInt(o.ID, 10),
	})
	if err != nil {
		log.Error("failed to create checkout session", zap.Error(err))
		return nil, b.upstream(err)
	}

	b.metrics.Counter("payment_sessions_created").Inc()
	log.Info("checkout session ready", zap.String("session_id", session.ID), zap.Int("line_items", len(lines)))
	return &order.CheckoutSession{Ref: session.ID, URL: session.URL}, nil
}

func (b *Bridge) SessionPaid(ctx context.Context, ref string) (bool, error) {
	session, err := b.gateway.GetCheckoutSession(ctx, ref)
	if err != nil {
		return false, b.upstream(err)
	}
	return session.PaymentStatus == PaymentStatusPaid, nil
}
