package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/Humphrey-He/storefront/pkg/catalog"
	"github.com/Humphrey-He/storefront/pkg/store"
)

func renderListing(out io.Writer, st store.ProductCollectionState, pageSize int) {
	fmt.Fprintf(out, "Status: %s\n", st.Status)
	if st.Status == store.StatusFailed {
		fmt.Fprintf(out, "Error: %s\n", st.LastError)
	}
	if len(st.Items) == 0 {
		fmt.Fprintln(out, "No products found")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tDISCOUNT\tBADGES")
	for _, p := range st.Items {
		discount := ""
		if d := p.DiscountPercent(); d > 0 {
			discount = fmt.Sprintf("%d%% off", d)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Name, p.EffectivePrice().StringFixed(2), discount, strings.Join(p.Badges(), ","))
	}
	tw.Flush()

	fmt.Fprintln(out, pagination(st.Query.Page, len(st.Items), st.TotalCount, pageSize))
}

// pagination describes the visible range, e.g. "Showing 11-20 of 40 (page 2/4)".
func pagination(page, shown, total, pageSize int) string {
	if page < 1 {
		page = 1
	}
	first := (page-1)*pageSize + 1
	last := first + shown - 1
	return fmt.Sprintf("Showing %d-%d of %d (page %d/%d)",
		first, last, total, page, catalog.TotalPages(total, pageSize))
}

func renderCategories(out io.Writer, st store.CategoryCollectionState) {
	if st.Status == store.StatusFailed {
		fmt.Fprintf(out, "Error: %s\n", st.LastError)
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, c := range st.Items {
		fmt.Fprintf(tw, "%s\t%s\n", c.ID, c.Name)
	}
	tw.Flush()
}

func renderQuickView(out io.Writer, p catalog.Product) {
	fmt.Fprintf(out, "%s (%s)\n", p.Name, p.ID)
	if badges := p.Badges(); len(badges) > 0 {
		fmt.Fprintf(out, "[%s]\n", strings.Join(badges, "] ["))
	}
	if p.Brand != "" {
		fmt.Fprintf(out, "Brand: %s\n", p.Brand)
	}

	price := "Price: " + p.EffectivePrice().StringFixed(2)
	if p.OnSale() && p.MRP != nil {
		price += fmt.Sprintf(" (MRP %s, %d%% off)", p.MRP.StringFixed(2), p.DiscountPercent())
	}
	fmt.Fprintln(out, price)

	if p.InStock() {
		fmt.Fprintf(out, "In stock: %d\n", p.Stock)
	} else {
		fmt.Fprintln(out, "Out of stock")
	}
	if img := p.Thumbnail(); img != "" {
		fmt.Fprintf(out, "Image: %s\n", img)
	}

	variants := p.DefaultVariants()
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		attr, _ := p.Attribute(name)
		fmt.Fprintf(out, "%s: %s (of %s)\n", name, variants[name], strings.Join(attr.Values, ", "))
	}
}
