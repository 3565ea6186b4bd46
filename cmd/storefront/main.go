// Command storefront browses a catalog API through the storefront store and
// runs the development catalog server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront catalog client",
	Long: `storefront drives the storefront data layer from the command line:
- serve runs the development catalog server
- products, categories and product browse a catalog API the way the
  listing page and the quick view do`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a storefront.yaml/json config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log human readable debug output to stderr")

	productsCmd.Flags().IntVar(&listing.page, "page", 1, "Listing page")
	productsCmd.Flags().StringVar(&listing.keyword, "keyword", "", "Keyword matched against name and brand")
	productsCmd.Flags().StringVar(&listing.category, "category", "", "Category ID")
	productsCmd.Flags().StringVar(&listing.minPrice, "min-price", "", "Inclusive lower price bound")
	productsCmd.Flags().StringVar(&listing.maxPrice, "max-price", "", "Inclusive upper price bound")
	productsCmd.Flags().BoolVar(&listing.remember, "remember-price", false, "Record the price range in the store")

	productCmd.Flags().IntVar(&listing.page, "page", 1, "Listing page the product appears on")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(productCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
