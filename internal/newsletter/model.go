package newsletter

import "time"

const (
	// MaxAttempts bounds how often a failed delivery is retried.
	MaxAttempts = 5
	// RetryDelay is how long a failed delivery waits before it is due again.
	RetryDelay = 10 * time.Minute
)

type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

type Subscriber struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type Newsletter struct {
	ID         int64     `json:"id"`
	Subject    string    `json:"subject"`
	Message    string    `json:"message"`
	Recipients int64     `json:"recipients"`
	CreatedAt  time.Time `json:"created_at"`
}

type CreateNewsletterInput struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Delivery is one newsletter addressed to one subscriber.
type Delivery struct {
	ID           int64
	NewsletterID int64
	Email        string
	Subject      string
	Message      string
	Attempts     int
}

// Result is the outcome of one delivery attempt; Err is nil when the mail went out.
type Result struct {
	DeliveryID int64
	Err        error
}
