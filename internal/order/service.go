package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ridefuture-be/internal/apperror"
	"ridefuture-be/internal/auth"
	"ridefuture-be/internal/logger"
	"ridefuture-be/internal/metrics"
	"ridefuture-be/internal/product"
	"ridefuture-be/internal/user"

	"go.uber.org/zap"
)

// UserDirectory resolves the customer placing an order.
type UserDirectory interface {
	GetOrCreate(ctx context.Context, email, firstName, lastName string) (*user.User, error)
	GetByID(ctx context.Context, id int64) (*user.User, error)
	IssueTokens(u *user.User) (auth.TokenPair, error)
}

type ProductCatalog interface {
	GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]*product.Product, error)
}

// CheckoutCreator opens and inspects hosted payment sessions.
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, o *Order, u *user.User) (*CheckoutSession, error)
	SessionPaid(ctx context.Context, ref string) (bool, error)
}

type Notifier interface {
	OrderConfirmed(ctx context.Context, o *Order) error
}

type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	GetOrder(ctx context.Context, id, viewerID int64, viewerIsStaff bool) (*Order, error)
	ListUserOrders(ctx context.Context, userID int64) ([]*Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]*Order, error)

	ConfirmPayment(ctx context.Context, id int64) (*Order, error)
	CancelPayment(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, next Status) (*Order, error)
	ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error)

	AddItem(ctx context.Context, orderID int64, input ItemInput) (*Item, error)
	UpdateItem(ctx context.Context, itemID int64, input UpdateItemInput) (*Item, error)
	RemoveItem(ctx context.Context, itemID int64) error
}

type service struct {
	repo     Repository
	users    UserDirectory
	catalog  ProductCatalog
	checkout CheckoutCreator
	notifier Notifier
	metrics  *metrics.Registry
	now      func() time.Time
}

func NewService(
	repo Repository,
	users UserDirectory,
	catalog ProductCatalog,
	checkout CheckoutCreator,
	notifier Notifier,
	registry *metrics.Registry,
) Service {
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	return &service{
		repo:     repo,
		users:    users,
		catalog:  catalog,
		checkout: checkout,
		notifier: notifier,
		metrics:  registry,
		now:      time.Now,
	}
}

func trimShipping(sh Shipping) Shipping {
	sh.Address = strings.TrimSpace(sh.Address)
	sh.City = strings.TrimSpace(sh.City)
	sh.PostalCode = strings.TrimSpace(sh.PostalCode)
	sh.Country = strings.TrimSpace(sh.Country)
	sh.Phone = strings.TrimSpace(sh.Phone)
	if sh.OrderNotes != nil {
		notes := strings.TrimSpace(*sh.OrderNotes)
		if notes == "" {
			sh.OrderNotes = nil
		} else {
			sh.OrderNotes = &notes
		}
	}
	return sh
}

func validateCreate(input *CreateOrderInput) *apperror.ValidationError {
	vErr := &apperror.ValidationError{}

	email, ok := user.NormalizeEmail(input.Email)
	if !ok {
		vErr.Add("email", "enter a valid email address")
	}
	input.Email = email
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Shipping = trimShipping(input.Shipping)

	required := map[string]string{
		"first_name":  input.FirstName,
		"last_name":   input.LastName,
		"address":     input.Address,
		"city":        input.City,
		"postal_code": input.PostalCode,
		"country":     input.Country,
		"phone":       input.Phone,
	}
	for field, v := range required {
		if v == "" {
			vErr.Add(field, "this field is required")
		}
	}

	if len(input.Items) == 0 {
		vErr.Add("items", "an order needs at least one item")
	}
	for i, it := range input.Items {
		if it.ProductID <= 0 {
			vErr.Add(fmt.Sprintf("items[%d].product_id", i), "this field is required")
		}
		if it.Quantity <= 0 {
			vErr.Add(fmt.Sprintf("items[%d].quantity", i), "must be greater than zero")
		}
	}
	return vErr
}

// checkProducts verifies every item points at an existing product and only
// asks for the guarantee where the product's category offers one.
func (s *service) checkProducts(ctx context.Context, vErr *apperror.ValidationError, items []ItemInput) (map[int64]*product.Product, error) {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}

	products, err := s.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			vErr.Add(fmt.Sprintf("items[%d].product_id", i), fmt.Sprintf("invalid product %d", it.ProductID))
			continue
		}
		if it.LongTermGuaranteeSelected && !p.Category.LongTermGuarantee {
			vErr.Add(fmt.Sprintf("items[%d].long_term_guarantee_selected", i), "long term guarantee is not available for this product")
		}
	}
	return products, nil
}

func fillItems(o *Order, products map[int64]*product.Product) {
	for _, it := range o.Items {
		p, ok := products[it.ProductID]
		if !ok {
			continue
		}
		it.Product = p
		if it.ProductName == "" {
			it.ProductName = p.Name
			it.UnitPrice = product.DiscountedPrice(p.Price, p.DiscountPercentage)
		}
	}
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
	)

	vErr := validateCreate(&input)
	if err := vErr.OrNil(); err != nil {
		log.Warn("validation failed", zap.Error(err))
		return nil, err
	}

	products, err := s.checkProducts(ctx, vErr, input.Items)
	if err != nil {
		log.Error("failed to load products", zap.Error(err))
		return nil, err
	}
	if err := vErr.OrNil(); err != nil {
		log.Warn("validation failed", zap.Error(err))
		return nil, err
	}

	u, err := s.users.GetOrCreate(ctx, input.Email, input.FirstName, input.LastName)
	if err != nil {
		log.Error("failed to resolve customer", zap.Error(err))
		return nil, err
	}

	o := &Order{
		UserID: u.ID,
		User: Customer{
			ID:        u.ID,
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
		},
		Shipping: input.Shipping,
	}
	if err := s.repo.Create(ctx, o, input.Items); err != nil {
		log.Error("failed to persist order", zap.Error(err))
		return nil, err
	}
	fillItems(o, products)
	s.metrics.Counter("orders_created").Inc()

	session, err := s.checkout.CreateCheckout(ctx, o, u)
	if err != nil {
		log.Error("checkout creation failed, canceling order", zap.Int64("order_id", o.ID), zap.Error(err))
		s.cancelAbandoned(ctx, o.ID)
		if !errors.Is(err, apperror.ErrUpstream) {
			err = apperror.Upstream("payment", err)
		}
		return nil, err
	}

	if err := s.repo.SetCheckoutSessionRef(ctx, o.ID, session.Ref); err != nil {
		log.Error("failed to store checkout session, canceling order", zap.Int64("order_id", o.ID), zap.Error(err))
		s.cancelAbandoned(ctx, o.ID)
		return nil, err
	}
	o.CheckoutSessionRef = &session.Ref

	pair, err := s.users.IssueTokens(u)
	if err != nil {
		log.Error("failed to issue tokens", zap.Error(err))
		return nil, err
	}

	log.Info("CreateOrder success",
		zap.Int64("order_id", o.ID),
		zap.Int64("user_id", u.ID),
		zap.String("total", o.TotalPrice.StringFixed(2)),
	)
	return &CreateOrderResult{Order: o, CheckoutURL: session.URL, TokenPair: pair}, nil
}

// cancelAbandoned closes an order whose checkout could not be opened.
func (s *service) cancelAbandoned(ctx context.Context, id int64) {
	if err := s.repo.CancelPending(ctx, id); err != nil {
		logger.FromCtx(ctx).Error("failed to cancel order after checkout failure", zap.Int64("order_id", id), zap.Error(err))
	}
}

func (s *service) attachProducts(ctx context.Context, orders ...*Order) error {
	seen := map[int64]bool{}
	ids := []int64{}
	for _, o := range orders {
		for _, it := range o.Items {
			if !seen[it.ProductID] {
				seen[it.ProductID] = true
				ids = append(ids, it.ProductID)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}

	products, err := s.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, o := range orders {
		fillItems(o, products)
	}
	return nil
}

func (s *service) GetOrder(ctx context.Context, id, viewerID int64, viewerIsStaff bool) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewerIsStaff && o.UserID != viewerID {
		logger.FromCtx(ctx).Warn("order access denied", zap.Int64("order_id", id), zap.Int64("user_id", viewerID))
		return nil, ErrForbidden
	}
	if err := s.attachProducts(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) ListUserOrders(ctx context.Context, userID int64) ([]*Order, error) {
	orders, err := s.repo.List(ctx, ListFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	if err := s.attachProducts(ctx, orders...); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *service) ListOrders(ctx context.Context, filter ListFilter) ([]*Order, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, apperror.NewValidation("status", fmt.Sprintf("unknown status %q", *filter.Status))
	}
	return s.repo.List(ctx, filter)
}

// ConfirmPayment marks a paid order confirmed and takes its items out of stock.
// Calling it again for an already confirmed order changes nothing.
func (s *service) ConfirmPayment(ctx context.Context, id int64) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ConfirmPayment"),
		zap.Int64("order_id", id),
	)

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch o.Status {
	case StatusPending:
	case StatusCanceled, StatusReturned:
		log.Warn("confirmation for closed order", zap.String("status", string(o.Status)))
		return nil, ErrNotPending
	default:
		log.Info("order already confirmed", zap.String("status", string(o.Status)))
		return o, nil
	}

	if s.checkout != nil {
		if o.CheckoutSessionRef == nil {
			log.Warn("pending order has no checkout session")
			return nil, ErrPaymentIncomplete
		}
		paid, err := s.checkout.SessionPaid(ctx, *o.CheckoutSessionRef)
		if err != nil {
			log.Error("failed to check checkout session", zap.Error(err))
			if !errors.Is(err, apperror.ErrUpstream) {
				err = apperror.Upstream("payment", err)
			}
			return nil, err
		}
		if !paid {
			log.Warn("checkout session not paid")
			return nil, ErrPaymentIncomplete
		}
	}

	if err := s.repo.Confirm(ctx, id); err != nil {
		if errors.Is(err, ErrNotPending) {
			// lost a race with another confirmation
			current, gErr := s.repo.GetByID(ctx, id)
			if gErr == nil && current.Status == StatusConfirmed {
				return current, nil
			}
		}
		if errors.Is(err, ErrInsufficientStock) {
			s.metrics.Counter("orders_stock_rejected").Inc()
		}
		log.Warn("confirmation failed", zap.Error(err))
		return nil, err
	}

	o.Status = StatusConfirmed
	s.metrics.Counter("orders_confirmed").Inc()

	if err := s.attachProducts(ctx, o); err != nil {
		log.Warn("failed to load products for notification", zap.Error(err))
	}
	if s.notifier != nil {
		if err := s.notifier.OrderConfirmed(ctx, o); err != nil {
			log.Error("failed to notify admin", zap.Error(err))
		}
	}

	log.Info("ConfirmPayment success")
	return o, nil
}

func (s *service) CancelPayment(ctx context.Context, id int64) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CancelPayment"),
		zap.Int64("order_id", id),
	)

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if o.Status != StatusPending {
		log.Warn("cancel for non-pending order", zap.String("status", string(o.Status)))
		return ErrNotPending
	}

	if err := s.repo.CancelPending(ctx, id); err != nil {
		log.Warn("cancel failed", zap.Error(err))
		return err
	}

	s.metrics.Counter("orders_canceled").Inc()
	log.Info("CancelPayment success")
	return nil
}

func (s *service) UpdateStatus(ctx context.Context, id int64, next Status) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateOrderStatus"),
		zap.Int64("order_id", id),
	)

	if !next.Valid() {
		return nil, apperror.NewValidation("status", fmt.Sprintf("unknown status %q", next))
	}

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == next {
		return o, nil
	}
	if !o.Status.CanTransitionTo(next) {
		log.Warn("transition rejected", zap.String("from", string(o.Status)), zap.String("to", string(next)))
		return nil, ErrInvalidTransition
	}

	if next == StatusConfirmed {
		err = s.repo.Confirm(ctx, id)
	} else {
		err = s.repo.UpdateStatus(ctx, id, o.Status, next)
	}
	if err != nil {
		log.Warn("status update failed", zap.Error(err))
		return nil, err
	}

	log.Info("order status updated", zap.String("from", string(o.Status)), zap.String("to", string(next)))
	return s.repo.GetByID(ctx, id)
}

// ExpireStale cancels pending orders older than olderThan and reports how many.
func (s *service) ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, apperror.NewValidation("older_than", "must be positive")
	}

	n, err := s.repo.ExpireStale(ctx, s.now().Add(-olderThan))
	if err != nil {
		logger.FromCtx(ctx).Error("expire stale orders failed", zap.Error(err))
		return 0, err
	}
	s.metrics.Counter("orders_expired").Add(uint64(n))
	logger.FromCtx(ctx).Info("stale orders expired", zap.Int64("count", n))
	return n, nil
}

func (s *service) AddItem(ctx context.Context, orderID int64, input ItemInput) (*Item, error) {
	vErr := &apperror.ValidationError{}
	if input.Quantity <= 0 {
		vErr.Add("quantity", "must be greater than zero")
	}
	if input.ProductID <= 0 {
		vErr.Add("product_id", "this field is required")
		return nil, vErr
	}

	products, err := s.catalog.GetProductsByIDs(ctx, []int64{input.ProductID})
	if err != nil {
		return nil, err
	}
	p, ok := products[input.ProductID]
	if !ok {
		vErr.Add("product_id", fmt.Sprintf("invalid product %d", input.ProductID))
	} else if input.LongTermGuaranteeSelected && !p.Category.LongTermGuarantee {
		vErr.Add("long_term_guarantee_selected", "long term guarantee is not available for this product")
	}
	if err := vErr.OrNil(); err != nil {
		return nil, err
	}

	return s.repo.AddItem(ctx, orderID, input)
}

func (s *service) UpdateItem(ctx context.Context, itemID int64, input UpdateItemInput) (*Item, error) {
	if input.Quantity == nil && input.LongTermGuaranteeSelected == nil {
		return nil, apperror.NewValidation("body", "no fields to update")
	}
	if input.Quantity != nil && *input.Quantity <= 0 {
		return nil, apperror.NewValidation("quantity", "must be greater than zero")
	}

	if input.LongTermGuaranteeSelected != nil && *input.LongTermGuaranteeSelected {
		it, err := s.repo.GetItem(ctx, itemID)
		if err != nil {
			return nil, err
		}
		products, err := s.catalog.GetProductsByIDs(ctx, []int64{it.ProductID})
		if err != nil {
			return nil, err
		}
		if p, ok := products[it.ProductID]; !ok || !p.Category.LongTermGuarantee {
			return nil, apperror.NewValidation("long_term_guarantee_selected", "long term guarantee is not available for this product")
		}
	}

	return s.repo.UpdateItem(ctx, itemID, input)
}

func (s *service) RemoveItem(ctx context.Context, itemID int64) error {
	return s.repo.RemoveItem(ctx, itemID)
}
