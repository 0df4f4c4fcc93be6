package order

import (
	"time"

	"ridefuture-be/internal/auth"
	"ridefuture-be/internal/product"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending          Status = "pending"
	StatusConfirmed        Status = "confirmed"
	StatusProcessing       Status = "processing"
	StatusReadyForShipping Status = "ready_for_shipping"
	StatusShipped          Status = "shipped"
	StatusOutForDelivery   Status = "out_for_delivery"
	StatusDelivered        Status = "delivered"
	StatusCanceled         Status = "canceled"
	StatusReturned         Status = "returned"
)

var transitions = map[Status][]Status{
	StatusPending:          {StatusConfirmed, StatusCanceled},
	StatusConfirmed:        {StatusProcessing, StatusCanceled},
	StatusProcessing:       {StatusReadyForShipping, StatusCanceled},
	StatusReadyForShipping: {StatusShipped},
	StatusShipped:          {StatusOutForDelivery},
	StatusOutForDelivery:   {StatusDelivered},
	StatusDelivered:        {StatusReturned},
}

func (s Status) Valid() bool {
	if _, ok := transitions[s]; ok {
		return true
	}
	return s == StatusCanceled || s == StatusReturned
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Customer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Shipping struct {
	Address    string  `json:"address"`
	City       string  `json:"city"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Phone      string  `json:"phone"`
	OrderNotes *string `json:"order_notes"`
}

type Order struct {
	ID     int64    `json:"id"`
	UserID int64    `json:"-"`
	User   Customer `json:"user"`
	Status Status   `json:"status"`
	Shipping
	TotalPrice         decimal.Decimal `json:"total_price"`
	CheckoutSessionRef *string         `json:"-"`
	Items              []*Item         `json:"items"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type Item struct {
	ID                        int64            `json:"id"`
	OrderID                   int64            `json:"-"`
	ProductID                 int64            `json:"product_id"`
	ProductName               string           `json:"product_name"`
	UnitPrice                 decimal.Decimal  `json:"unit_price"`
	Quantity                  int              `json:"quantity"`
	LongTermGuaranteeSelected bool             `json:"long_term_guarantee_selected"`
	Product                   *product.Product `json:"product,omitempty"`
}

type ItemInput struct {
	ProductID                 int64 `json:"product_id"`
	Quantity                  int   `json:"quantity"`
	LongTermGuaranteeSelected bool  `json:"long_term_guarantee_selected"`
}

type CreateOrderInput struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Shipping
	Items []ItemInput `json:"items"`
}

type UpdateItemInput struct {
	Quantity                  *int  `json:"quantity"`
	LongTermGuaranteeSelected *bool `json:"long_term_guarantee_selected"`
}

type ListFilter struct {
	Status *Status
	UserID int64
	Limit  int
}

// CreateOrderResult is the order as stored plus what the client needs to pay
// and stay signed in.
type CreateOrderResult struct {
	*Order
	CheckoutURL string `json:"checkout_url"`
	auth.TokenPair
}

// CheckoutSession is a hosted payment page created for an order.
type CheckoutSession struct {
	Ref string
	URL string
}
