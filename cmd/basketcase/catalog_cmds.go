package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"basketcase/internal/services"
)

type findStoresCmd struct {
	limit int
}

func (*findStoresCmd) Name() string     { return "find-stores" }
func (*findStoresCmd) Synopsis() string { return "find nearby stores by postal code" }
func (*findStoresCmd) Usage() string {
	return `basketcase find-stores [-limit n] <postal-code>

  Finds nearby stores and saves them to the local catalog.
`
}

func (c *findStoresCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "limit", 5, "maximum number of stores to return")
}

func (c *findStoresCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageErr("expected exactly one postal code argument")
	}
	repo, cfg, err := openRepo()
	if err != nil {
		return fail(err)
	}
	defer repo.Close()

	api, err := openKroger(ctx, cfg)
	if err != nil {
		return fail(err)
	}

	catalog := services.NewCatalogService(repo, api)
	stores, err := catalog.FindNearbyStores(ctx, f.Arg(0), c.limit)
	if err != nil {
		logCLIError(ctx, repo, err)
		return fail(err)
	}

	fmt.Println("\nNearby Stores:")
	for _, store := range stores {
		fmt.Printf("\n%s\nID: %s\n%s\n%s\n", store.Name, store.ID, store.Address, store.PostalCode)
	}
	return subcommands.ExitSuccess
}

type searchProductsCmd struct {
	limit int
}

func (*searchProductsCmd) Name() string     { return "search-products" }
func (*searchProductsCmd) Synopsis() string { return "search for products at a store" }
func (*searchProductsCmd) Usage() string {
	return `basketcase search-products [-limit n] <term> <store-id>

  Searches the store's catalog and saves the results locally.
`
}

func (c *searchProductsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "limit", 10, "maximum number of products to return")
}

func (c *searchProductsCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usageErr("expected <term> and <store-id> arguments")
	}
	repo, cfg, err := openRepo()
	if err != nil {
		return fail(err)
	}
	defer repo.Close()

	api, err := openKroger(ctx, cfg)
	if err != nil {
		return fail(err)
	}

	catalog := services.NewCatalogService(repo, api)
	products, err := catalog.SearchProducts(ctx, f.Arg(0), f.Arg(1), c.limit)
	if err != nil {
		logCLIError(ctx, repo, err)
		return fail(err)
	}

	fmt.Println("\nProducts Found:")
	for _, p := range products {
		upc := p.UPC
		if upc == "" {
			upc = "N/A"
		}
		brand := p.Brand
		if brand == "" {
			brand = "N/A"
		}
		size := p.Size
		if size == "" {
			size = "N/A"
		}
		fmt.Printf("\n%s\nID: %s\nUPC: %s\nBrand: %s\nSize: %s\n", p.Name, p.ID, upc, brand, size)
	}
	return subcommands.ExitSuccess
}
