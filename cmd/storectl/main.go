package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders/internal/config"
	"github.com/ariefcatur/go-storefront-orders/internal/logx"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/postgres"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
)

const usage = `usage: storectl <command> [flags]

commands:
  migrate              create tables
  seed                 insert the demo catalog when empty
  stock [-max N]       print stock entries, optionally only those at or below N
  order <number>       print one order
`

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg := config.Load()
	log := logx.New("storectl", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, 2)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()
	gdb, err := catalog.Open(db)
	if err != nil {
		log.Fatal().Err(err).Msg("gorm open")
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "migrate":
		err = postgres.Migrate(ctx, db)
		if err == nil {
			fmt.Println("schema up to date")
		}
	case "seed":
		var inserted bool
		inserted, err = catalog.Seed(ctx, gdb, time.Now().UTC())
		if err == nil && !inserted {
			fmt.Println("catalog not empty; nothing seeded")
		} else if err == nil {
			fmt.Println("demo catalog seeded")
		}
	case "stock":
		fs := flag.NewFlagSet("stock", flag.ExitOnError)
		maxQty := fs.Int("max", -1, "only entries with quantity at or below this value")
		_ = fs.Parse(args)
		var limit *int
		if *maxQty >= 0 {
			limit = maxQty
		}
		var rows []catalog.StockRow
		rows, err = (&catalog.Repo{DB: gdb}).StockReport(ctx, limit)
		if err == nil {
			err = printStock(os.Stdout, rows)
		}
	case "order":
		if len(args) != 1 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		svc := &orders.Service{Store: &orders.Repo{DB: db}, Log: log}
		var o *orders.Order
		o, err = svc.GetOrder(ctx, args[0])
		if err == nil {
			err = printOrder(os.Stdout, o)
		}
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", cmd).Msg("storectl failed")
	}
}

func printStock(w io.Writer, rows []catalog.StockRow) error {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{
			strconv.FormatInt(r.ProductID, 10),
			r.ProductName,
			r.SizeName,
			strconv.Itoa(r.StockQuantity),
			strconv.FormatBool(r.InStock),
		})
	}
	table := tablewriter.NewWriter(w)
	table.Header("Product", "Name", "Size", "Qty", "In stock")
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printOrder(w io.Writer, o *orders.Order) error {
	fmt.Fprintf(w, "%s  %s / %s  placed %s\n", o.OrderNumber, o.Status, o.PaymentStatus, o.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "ship to: %s %s, %s, %s %s\n", o.ShippingAddress.FirstName, o.ShippingAddress.LastName,
		o.ShippingAddress.Line1, o.ShippingAddress.Postcode, o.ShippingAddress.City)

	data := make([][]string, 0, len(o.Lines)+5)
	for _, l := range o.Lines {
		data = append(data, []string{l.ProductName, l.Color, l.SizeName, strconv.Itoa(l.Quantity),
			l.UnitPrice.StringFixed(2), l.LineTotal.StringFixed(2)})
	}
	for _, t := range []struct {
		label string
		value string
	}{
		{"Subtotal", o.Subtotal.StringFixed(2)},
		{"Shipping", o.Shipping.StringFixed(2)},
		{"Tax", o.Tax.StringFixed(2)},
		{"Discount", "-" + o.Discount.StringFixed(2)},
		{"Total", o.Total.StringFixed(2)},
	} {
		data = append(data, []string{"", "", "", "", t.label, t.value})
	}
	table := tablewriter.NewWriter(w)
	table.Header("Product", "Color", "Size", "Qty", "Unit", "Line total")
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
