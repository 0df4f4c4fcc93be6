package product

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DiscountedPrice returns price minus discount percent, rounded to cents.
// A zero or negative discount leaves the price untouched.
func DiscountedPrice(price, discountPercentage decimal.Decimal) decimal.Decimal {
	if !discountPercentage.IsPositive() {
		return price
	}
	discount := price.Mul(discountPercentage).Div(hundred)
	return price.Sub(discount).Round(2)
}

type CategoryRef struct {
	ID                int64  `json:"-"`
	Name              string `json:"name"`
	Slug              string `json:"slug"`
	LongTermGuarantee bool   `json:"long_term_guarantee"`
}

type Product struct {
	ID                 int64            `json:"id"`
	Name               string           `json:"name"`
	Slug               string           `json:"slug"`
	Description        string           `json:"description"`
	Price              decimal.Decimal  `json:"price"`
	DiscountPercentage decimal.Decimal  `json:"discount_percentage"`
	DiscountedPrice    decimal.Decimal  `json:"discounted_price"`
	AverageRating      *float64         `json:"average_rating"`
	Stock              int              `json:"stock"`
	Category           CategoryRef      `json:"category"`
	IsFeatured         bool             `json:"is_featured"`
	Gallery            []GalleryImage   `json:"gallery"`
	Characteristics    []Characteristic `json:"characteristics"`
	Comments           []Comment        `json:"comments,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// FirstImage returns the path of the first gallery image, if any.
func (p *Product) FirstImage() (string, bool) {
	if len(p.Gallery) == 0 {
		return "", false
	}
	return p.Gallery[0].Path, true
}

type GalleryImage struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"-"`
	Path      string `json:"-"`
	Image     string `json:"image"`
	Caption   string `json:"caption"`
}

type Characteristic struct {
	ID                   int64   `json:"id"`
	ProductID            int64   `json:"-"`
	CharacteristicTypeID int64   `json:"-"`
	Name                 string  `json:"name"`
	Value                string  `json:"value"`
	Suffix               *string `json:"suffix"`
}

type CommentUser struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Comment struct {
	ID        int64       `json:"id"`
	ProductID int64       `json:"product"`
	User      CommentUser `json:"user"`
	Rating    int         `json:"rating"`
	Comment   string      `json:"comment"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Ordering string

const (
	OrderPriceAsc      Ordering = "price"
	OrderPriceDesc     Ordering = "-price"
	OrderCreatedAtAsc  Ordering = "created_at"
	OrderCreatedAtDesc Ordering = "-created_at"
	OrderUpdatedAtAsc  Ordering = "updated_at"
	OrderUpdatedAtDesc Ordering = "-updated_at"
)

var orderingClauses = map[Ordering]string{
	OrderPriceAsc:      "p.price ASC",
	OrderPriceDesc:     "p.price DESC",
	OrderCreatedAtAsc:  "p.created_at ASC",
	OrderCreatedAtDesc: "p.created_at DESC",
	OrderUpdatedAtAsc:  "p.updated_at ASC",
	OrderUpdatedAtDesc: "p.updated_at DESC",
}

type ListFilter struct {
	CategorySlug string
	CategoryIDs  []int64
	Featured     *bool
	Price        *decimal.Decimal
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Search       string
	ExcludeID    int64
	Ordering     Ordering

	// Limit 0 means no limit.
	Limit  int
	Offset int
}

type ListResult struct {
	Items []*Product
	Total int
}

type CreateProductInput struct {
	Name               string          `json:"name"`
	Slug               string          `json:"slug"`
	Description        string          `json:"description"`
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	Stock              int             `json:"stock"`
	CategoryID         int64           `json:"category_id"`
	IsFeatured         bool            `json:"is_featured"`
}

type UpdateProductInput struct {
	Name               *string          `json:"name"`
	Description        *string          `json:"description"`
	Price              *decimal.Decimal `json:"price"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage"`
	Stock              *int             `json:"stock"`
	CategoryID         *int64           `json:"category_id"`
	IsFeatured         *bool            `json:"is_featured"`
}

func (in UpdateProductInput) HasChanges() bool {
	return in.Name != nil ||
		in.Description != nil ||
		in.Price != nil ||
		in.DiscountPercentage != nil ||
		in.Stock != nil ||
		in.CategoryID != nil ||
		in.IsFeatured != nil
}

type AddCharacteristicInput struct {
	CharacteristicTypeID int64  `json:"characteristic_type_id"`
	Value                string `json:"value"`
}

type CreateCommentInput struct {
	ProductID int64  `json:"product"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}
