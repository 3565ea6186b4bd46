package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Humphrey-He/storefront/api"
	"github.com/Humphrey-He/storefront/internal/logging"
	"github.com/Humphrey-He/storefront/pkg/catalog"
)

// mountTimeout bounds how long a command waits for the initial fetches.
const mountTimeout = 30 * time.Second

type listingFlags struct {
	page     int
	keyword  string
	category string
	minPrice string
	maxPrice string
	remember bool
}

var listing listingFlags

func (f listingFlags) query() (catalog.ProductQuery, error) {
	q := catalog.ProductQuery{Page: f.page, Keyword: f.keyword, CategoryID: f.category}
	var err error
	if q.MinPrice, err = parseDecimal("min-price", f.minPrice); err != nil {
		return q, err
	}
	if q.MaxPrice, err = parseDecimal("max-price", f.maxPrice); err != nil {
		return q, err
	}
	return q, nil
}

func parseDecimal(flag, v string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q: %w", flag, v, err)
	}
	return &d, nil
}

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Show one page of the product listing",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorefront(cmd, func(ctx context.Context, sf *api.Storefront) error {
			return runProducts(ctx, cmd.OutOrStdout(), sf, listing)
		})
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorefront(cmd, func(ctx context.Context, sf *api.Storefront) error {
			return runCategories(ctx, cmd.OutOrStdout(), sf)
		})
	},
}

var productCmd = &cobra.Command{
	Use:   "product <id>",
	Short: "Quick view of a product on the listing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorefront(cmd, func(ctx context.Context, sf *api.Storefront) error {
			return runProduct(ctx, cmd.OutOrStdout(), sf, listing.page, args[0])
		})
	},
}

// storefrontOptions replaces the configured logger with a console debug
// logger when --debug is set.
func storefrontOptions() []api.Option {
	if !debug {
		return nil
	}
	return []api.Option{api.WithLogger(logging.Development())}
}

func withStorefront(cmd *cobra.Command, fn func(context.Context, *api.Storefront) error) error {
	sf, err := api.Open(configPath, storefrontOptions()...)
	if err != nil {
		return err
	}
	defer sf.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), mountTimeout)
	defer cancel()
	return fn(ctx, sf)
}

func runProducts(ctx context.Context, out io.Writer, sf *api.Storefront, f listingFlags) error {
	q, err := f.query()
	if err != nil {
		return err
	}
	s := sf.Store()
	if f.remember {
		if q.MinPrice == nil || q.MaxPrice == nil {
			return fmt.Errorf("--remember-price needs both --min-price and --max-price")
		}
		s.SetPriceRange(*q.MinPrice, *q.MaxPrice)
	}

	mountErr := sf.Mount(ctx, q)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	renderListing(out, s.ProductState(), s.PageSize())
	if r := s.PriceRange(); !r.IsZero() {
		fmt.Fprintf(out, "Remembered price range: %s - %s\n", r.MinPrice, r.MaxPrice)
	}
	return mountErr
}

func runCategories(ctx context.Context, out io.Writer, sf *api.Storefront) error {
	req := sf.Store().RequestCategories()
	if err := req.Wait(ctx); err != nil {
		return err
	}
	renderCategories(out, sf.Store().CategoryState())
	return req.Err()
}

func runProduct(ctx context.Context, out io.Writer, sf *api.Storefront, page int, id string) error {
	req := sf.Store().RequestProducts(catalog.ProductQuery{Page: page})
	if err := req.Wait(ctx); err != nil {
		return err
	}
	if err := req.Err(); err != nil {
		return err
	}
	p, ok := sf.Store().Product(id)
	if !ok {
		return fmt.Errorf("product %s is not on page %d", id, page)
	}
	renderQuickView(out, p)
	return nil
}
