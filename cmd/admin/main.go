package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"ridefuture-be/internal/category"
	"ridefuture-be/internal/config"
	"ridefuture-be/internal/db"
	"ridefuture-be/internal/logger"
	"ridefuture-be/internal/mailer"
	"ridefuture-be/internal/metrics"
	"ridefuture-be/internal/newsletter"
	"ridefuture-be/internal/order"
	"ridefuture-be/internal/product"
	"ridefuture-be/internal/user"

	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"
)

const usage = `usage: admin <command> [flags]

commands:
  orders            list orders (-status, -user, -limit)
  expire-stale      cancel pending orders older than -older-than
  low-stock         list products with stock at or below -threshold
  newsletter-drain  send every due newsletter delivery now
  newsletter-stats  show newsletter delivery counts by status
  promote-staff     grant (or -revoke) staff rights to -email
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database, err := db.NewDatabase(cfg)
	if err != nil {
		logger.L().Fatal("failed to connect db", zap.Error(err))
	}
	defer database.Close()

	registry := metrics.NewRegistry()
	orderRepo := order.NewRepository(database, cfg.GuaranteeFee)
	orders := order.NewService(orderRepo, nil, nil, nil, nil, registry)
	products := product.NewService(
		product.NewRepository(database),
		category.NewService(category.NewRepository(database)),
		product.NewLocalStore(cfg.MediaRoot, cfg.SiteURL),
	)
	users := user.NewService(user.NewRepository(database), nil, nil, nil)
	newsletterRepo := newsletter.NewRepository(database)

	ctx := context.Background()
	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "orders":
		err = runOrders(ctx, os.Stdout, orders, args)
	case "expire-stale":
		err = runExpireStale(ctx, os.Stdout, orders, args)
	case "low-stock":
		err = runLowStock(ctx, os.Stdout, products, args)
	case "newsletter-stats":
		err = runNewsletterStats(ctx, os.Stdout, newsletter.NewService(newsletterRepo))
	case "newsletter-drain":
		var notifier *mailer.Notifier
		notifier, err = mailer.NewNotifier(newSender(cfg), mailer.NotifierConfig{
			AdminEmail: cfg.AdminEmail,
			SiteURL:    cfg.SiteURL,
			Currency:   cfg.PaymentCurrency,
		})
		if err == nil {
			d := newsletter.NewDispatcher(newsletterRepo, notifier, cfg.NewsletterWorkers, cfg.NewsletterPollInterval, registry)
			err = runNewsletterDrain(ctx, os.Stdout, d, registry)
		}
	case "promote-staff":
		err = runPromoteStaff(ctx, os.Stdout, users, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.L().Fatal("command failed", zap.String("command", cmd), zap.Error(err))
	}
}

func newSender(cfg *config.Config) mailer.Sender {
	if cfg.SMTPUser == "" || cfg.SMTPPassword == "" {
		return mailer.LogSender{}
	}
	return mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
}

func render(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(header)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// --- orders ---

type orderLister interface {
	ListOrders(ctx context.Context, filter order.ListFilter) ([]*order.Order, error)
}

func runOrders(ctx context.Context, w io.Writer, orders orderLister, args []string) error {
	fs := flag.NewFlagSet("orders", flag.ContinueOnError)
	status := fs.String("status", "", "only orders in this status")
	userID := fs.Int64("user", 0, "only orders of this user id")
	limit := fs.Int("limit", 50, "maximum number of orders")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := order.ListFilter{UserID: *userID, Limit: *limit}
	if *status != "" {
		s := order.Status(*status)
		filter.Status = &s
	}

	list, err := orders.ListOrders(ctx, filter)
	if err != nil {
		return err
	}
	return render(w, []string{"ID", "Status", "Customer", "Total", "Created"}, orderRows(list))
}

func orderRows(list []*order.Order) [][]string {
	rows := make([][]string, 0, len(list))
	for _, o := range list {
		rows = append(rows, []string{
			strconv.FormatInt(o.ID, 10),
			string(o.Status),
			o.User.Email,
			o.TotalPrice.StringFixed(2),
			o.CreatedAt.Format(time.DateTime),
		})
	}
	return rows
}

// --- expire-stale ---

type staleExpirer interface {
	ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

func runExpireStale(ctx context.Context, w io.Writer, orders staleExpirer, args []string) error {
	fs := flag.NewFlagSet("expire-stale", flag.ContinueOnError)
	olderThan := fs.Duration("older-than", 24*time.Hour, "age after which a pending order is canceled")
	if err := fs.Parse(args); err != nil {
		return err
	}

	n, err := orders.ExpireStale(ctx, *olderThan)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "canceled %d pending orders older than %s\n", n, *olderThan)
	return nil
}

// --- low-stock ---

type productLister interface {
	ListProducts(ctx context.Context, filter product.ListFilter) (*product.ListResult, error)
}

func runLowStock(ctx context.Context, w io.Writer, products productLister, args []string) error {
	fs := flag.NewFlagSet("low-stock", flag.ContinueOnError)
	threshold := fs.Int("threshold", 5, "report products with stock at or below this value")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := products.ListProducts(ctx, product.ListFilter{})
	if err != nil {
		return err
	}
	return render(w, []string{"ID", "Slug", "Category", "Stock"}, lowStockRows(res.Items, *threshold))
}

func lowStockRows(items []*product.Product, threshold int) [][]string {
	var low []*product.Product
	for _, p := range items {
		if p.Stock <= threshold {
			low = append(low, p)
		}
	}
	sort.SliceStable(low, func(i, j int) bool { return low[i].Stock < low[j].Stock })

	rows := make([][]string, 0, len(low))
	for _, p := range low {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.Slug,
			p.Category.Slug,
			strconv.Itoa(p.Stock),
		})
	}
	return rows
}

// --- newsletter ---

type deliveryStats interface {
	DeliveryStats(ctx context.Context) (map[newsletter.DeliveryStatus]int64, error)
}

func runNewsletterStats(ctx context.Context, w io.Writer, svc deliveryStats) error {
	stats, err := svc.DeliveryStats(ctx)
	if err != nil {
		return err
	}
	return render(w, []string{"Status", "Deliveries"}, statsRows(stats))
}

func statsRows(stats map[newsletter.DeliveryStatus]int64) [][]string {
	var rows [][]string
	for _, s := range []newsletter.DeliveryStatus{newsletter.DeliveryPending, newsletter.DeliverySent, newsletter.DeliveryFailed} {
		rows = append(rows, []string{string(s), strconv.FormatInt(stats[s], 10)})
	}
	return rows
}

type drainer interface {
	Drain(ctx context.Context) (int, error)
}

func runNewsletterDrain(ctx context.Context, w io.Writer, d drainer, registry *metrics.Registry) error {
	n, err := d.Drain(ctx)
	if err != nil {
		return err
	}
	return render(w, []string{"Attempted", "Sent", "Failed"}, [][]string{{
		strconv.Itoa(n),
		strconv.FormatUint(registry.Counter("newsletter_sent").Load(), 10),
		strconv.FormatUint(registry.Counter("newsletter_failed").Load(), 10),
	}})
}

// --- promote-staff ---

type staffSetter interface {
	SetStaff(ctx context.Context, email string, staff bool) error
}

func runPromoteStaff(ctx context.Context, w io.Writer, users staffSetter, args []string) error {
	fs := flag.NewFlagSet("promote-staff", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	revoke := fs.Bool("revoke", false, "remove staff rights instead")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("-email is required")
	}

	if err := users.SetStaff(ctx, *email, !*revoke); err != nil {
		return err
	}
	if *revoke {
		fmt.Fprintf(w, "%s is no longer staff\n", *email)
	} else {
		fmt.Fprintf(w, "%s is now staff\n", *email)
	}
	return nil
}
