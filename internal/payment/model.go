package payment

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Remote objects are keyed locally as product:<id> or guarantee:<id>.
const (
	productKeyPrefix   = "product"
	guaranteeKeyPrefix = "guarantee"
)

func ProductKey(productID int64) string {
	return fmt.Sprintf("%s:%d", productKeyPrefix, productID)
}

func GuaranteeKey(productID int64) string {
	return fmt.Sprintf("%s:%d", guaranteeKeyPrefix, productID)
}

// GuaranteeName is the display name of the long term guarantee add-on.
func GuaranteeName(productName string) string {
	return productName + " - 24 Month Guarantee"
}

// ToMinorUnits converts an amount to the smallest currency unit (cents).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

type ProductParams struct {
	Name        string
	Description string
	URL         string
	Images      []string
}

type PriceParams struct {
	ProductID  string
	UnitAmount int64
	Currency   string
}

type CustomerParams struct {
	Email string
	Name  string
}

type LineItem struct {
	PriceRef string
	Quantity int
}

type SessionParams struct {
	CustomerID        string
	LineItems         []LineItem
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
}

const PaymentStatusPaid = "paid"

// Session is the subset of a hosted checkout session this service reads.
type Session struct {
	ID                string `json:"id"`
	URL               string `json:"url"`
	Status            string `json:"status"`
	PaymentStatus     string `json:"payment_status"`
	ClientReferenceID string `json:"client_reference_id"`
}

// APIError is the error object returned by the payment provider.
type APIError struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe %d %s (%s): %s", e.StatusCode, e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("stripe %d %s: %s", e.StatusCode, e.Type, e.Message)
}
