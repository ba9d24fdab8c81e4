package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/krisalay/storefront-cache/platform"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

var (
	soldOutColor = color.New(color.FgRed, color.Bold)
	lowColor     = color.New(color.FgYellow)
)

// lowStock is the stock level below which a variant is highlighted.
const lowStock = 5

// productsCmd lists the catalog with formatted prices.
var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List the store's products and variants with formatted prices",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(os.Stderr)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		rt, err := a.connect(cmd.Context())
		if err != nil {
			return err
		}
		colors, _ := a.settings.useColors()
		color.NoColor = !colors

		res, err := a.catalog.GetStore(cmd.Context())
		if err != nil {
			return err
		}
		if !res.Success || res.Data == nil {
			return fmt.Errorf("get store failed: %s", res.Message)
		}
		f := storeFormatter(cmd.Context(), rt.Client(), res.Data)
		return writeProductTable(cmd.OutOrStdout(), res.Data, f)
	},
}

// storeFormatter prefers the platform's formatter and falls back to the store currency.
func storeFormatter(ctx context.Context, c platform.FormatterFactory, store *platform.Store) platform.Formatter {
	if f, err := c.CreateFormatter(ctx); err == nil {
		return f
	}
	if f, err := platform.NewCurrencyFormatter(store.Currency, ""); err == nil {
		return f
	}
	return nil
}

// writeProductTable renders one row per variant.
func writeProductTable(w io.Writer, store *platform.Store, f platform.Formatter) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Product", "Slug", "Name", "Variant", "Price", "Stock"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, p := range store.Products {
		for _, v := range p.Variants {
			price := strconv.FormatFloat(v.Price, 'f', 2, 64)
			if f != nil {
				price = f.Format(v.Price)
			}
			data = append(data, []string{p.ID, p.Slug, p.Name, v.Name, price, stockLabel(v.Stock)})
		}
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s: %d products, %d variants\n", store.Name, len(store.Products), len(data))
	return err
}

func stockLabel(n int) string {
	switch {
	case n <= 0:
		return soldOutColor.Sprint("sold out")
	case n < lowStock:
		return lowColor.Sprint(strconv.Itoa(n))
	default:
		return strconv.Itoa(n)
	}
}
