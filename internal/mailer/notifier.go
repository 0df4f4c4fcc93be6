package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"ridefuture-be/internal/apperror"
	"ridefuture-be/internal/logger"
	"ridefuture-be/internal/order"
	"ridefuture-be/internal/user"
	"ridefuture-be/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	tmplTempCode     = "temp_code.html"
	tmplOrderCreated = "order_created.html"
	tmplNewsletter   = "newsletter.html"
	tmplSupport      = "support.html"
)

type NotifierConfig struct {
	AdminEmail string
	SiteURL    string
	Currency   string
}

// Notifier renders the transactional emails and hands them to a Sender.
type Notifier struct {
	sender    Sender
	cfg       NotifierConfig
	templates *template.Template
}

func NewNotifier(sender Sender, cfg NotifierConfig) (*Notifier, error) {
	tmpl, err := template.New("mail").Funcs(template.FuncMap{
		"deref": utils.PtrString,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}

	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")
	cfg.Currency = strings.ToUpper(cfg.Currency)
	return &Notifier{sender: sender, cfg: cfg, templates: tmpl}, nil
}

type page struct {
	Subject string
	SiteURL string
	Data    any
}

func (n *Notifier) render(name, subject string, data any) (string, error) {
	var buf bytes.Buffer
	if err := n.templates.ExecuteTemplate(&buf, name, page{Subject: subject, SiteURL: n.cfg.SiteURL, Data: data}); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (n *Notifier) send(ctx context.Context, tmpl string, to []string, subject string, data any) error {
	html, err := n.render(tmpl, subject, data)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, Message{To: to, Subject: subject, HTML: html})
}

func (n *Notifier) money(amount decimal.Decimal) string {
	return amount.StringFixed(2) + " " + n.cfg.Currency
}

// SendTempCode mails a one-time login code.
func (n *Notifier) SendTempCode(ctx context.Context, email, code string) error {
	data := struct {
		Code         string
		ValidMinutes int
	}{Code: code, ValidMinutes: int(user.CodeTTL.Minutes())}

	return n.send(ctx, tmplTempCode, []string{email}, "Your Temporary Password", data)
}

type orderLine struct {
	Name      string
	Quantity  int
	Price     string
	Image     string
	Guarantee bool
}

// OrderConfirmed tells the shop admin about a paid order.
func (n *Notifier) OrderConfirmed(ctx context.Context, o *order.Order) error {
	if n.cfg.AdminEmail == "" {
		logger.FromCtx(ctx).Warn("admin email not configured, skipping order notification", zap.Int64("order_id", o.ID))
		return nil
	}

	lines := make([]orderLine, 0, len(o.Items))
	for _, it := range o.Items {
		line := orderLine{
			Name:      it.ProductName,
			Quantity:  it.Quantity,
			Price:     n.money(it.UnitPrice),
			Guarantee: it.LongTermGuaranteeSelected,
		}
		if it.Product != nil && len(it.Product.Gallery) > 0 {
			line.Image = it.Product.Gallery[0].Image
		}
		lines = append(lines, line)
	}

	data := struct {
		Order    *order.Order
		Items    []orderLine
		Total    string
		AdminURL string
	}{
		Order:    o,
		Items:    lines,
		Total:    n.money(o.TotalPrice),
		AdminURL: fmt.Sprintf("%s/api/orders/%d/", n.cfg.SiteURL, o.ID),
	}

	return n.send(ctx, tmplOrderCreated, []string{n.cfg.AdminEmail}, fmt.Sprintf("RideFuture: New Order #%d", o.ID), data)
}

// Newsletter sends one newsletter to a single subscriber. message is trusted HTML
// written by staff.
func (n *Notifier) Newsletter(ctx context.Context, email, subject, message string) error {
	data := struct {
		Message template.HTML
	}{Message: template.HTML(message)}

	return n.send(ctx, tmplNewsletter, []string{email}, subject, data)
}

type SupportRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func (r *SupportRequest) Validate() error {
	vErr := &apperror.ValidationError{}

	r.Name = strings.TrimSpace(r.Name)
	r.Message = strings.TrimSpace(r.Message)
	email, ok := user.NormalizeEmail(r.Email)
	r.Email = email

	if r.Name == "" {
		vErr.Add("name", "this field is required")
	}
	if !ok {
		vErr.Add("email", "enter a valid email address")
	}
	if r.Message == "" {
		vErr.Add("message", "this field is required")
	}
	return vErr.OrNil()
}

// Support forwards a customer's help request to the admin inbox.
func (n *Notifier) Support(ctx context.Context, req SupportRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if n.cfg.AdminEmail == "" {
		return fmt.Errorf("admin email not configured")
	}

	return n.send(ctx, tmplSupport, []string{n.cfg.AdminEmail}, "RideFuture: Support request from "+req.Name, req)
}
