package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/google/subcommands"

	"basketcase/internal/services"
)

func parseBasketID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid basket id %q", arg)
	}
	return id, nil
}

type createBasketCmd struct{}

func (*createBasketCmd) Name() string     { return "create-basket" }
func (*createBasketCmd) Synopsis() string { return "create a new template basket" }
func (*createBasketCmd) Usage() string {
	return `basketcase create-basket <name> <store-id>

  Creates an empty template basket pinned to a store. Add items with
  add-item, then freeze it with save-basket.
`
}
func (*createBasketCmd) SetFlags(*flag.FlagSet) {}

func (c *createBasketCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usageErr("expected <name> and <store-id> arguments")
	}
	repo, _, err := openRepo()
	if err != nil {
		return fail(err)
	}
	defer repo.Close()

	baskets := services.NewBasketService(repo)
	basket, err := baskets.Create(ctx, f.Arg(0), f.Arg(1), nil)
	if err != nil {
		logCLIError(ctx, repo, err)
		return fail(err)
	}
	fmt.Printf("\nCreated basket: %s (ID: %d)\n", basket.Name, basket.ID)
	return subcommands.ExitSuccess
}

type addItemCmd struct {
	quantity int64
}

func (*addItemCmd) Name() string     { return "add-item" }
func (*addItemCmd) Synopsis() string { return "add a product to a template basket" }
func (*addItemCmd) Usage() string {
	return `basketcase add-item [-qty n] <basket-id> <product-id>

  Adds a product to a template basket. Fails once the basket is saved.
`
}

func (c *addItemCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.quantity, "qty", 1, "quantity of the product")
}

func (c *addItemCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usageErr("expected <basket-id> and <product-id> arguments")
	}
	id, err := parseBasketID(f.Arg(0))
	if err != nil {
		return usageErr("%v", err)
	}
	repo, _, err := openRepo()
	if err != nil {
		return fail(err)
	}
	defer repo.Close()

	baskets := services.NewBasketService(repo)
	if err := baskets.AddItem(ctx, id, f.Arg(1), c.quantity); err != nil {
		logCLIError(ctx, repo, err)
		return fail(err)
	}
	fmt.Printf("\nAdded to basket %d:\nProduct ID: %s\nQuantity: %d\n", id, f.Arg(1), c.quantity)
	return subcommands.ExitSuccess
}

type setQuantityCmd struct{}

func (*setQuantityCmd) Name() string     { return "set-quantity" }
func (*setQuantityCmd) Synopsis() string { return "change an item's quantity in a template basket" }
func (*setQuantityCmd) Usage() string {
	return `basketcase set-quantity <basket-id> <product-id> <quantity>
`
}
func (*setQuantityCmd) SetFlags(*flag.FlagSet) {}

func (c *setQuantityCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 3 {
		return usageErr("expected <basket-id>, <product-id> and <quantity> arguments")
	}
	id, err := parseBasketID(f.Arg(0))
	if err != nil {
		return usageErr("%v", err)
	}
	qty, err := strconv.ParseInt(f.Arg(2), 10, 64)
	if err != nil {
		return usageErr("invalid quantity %q", f.Arg(2))
	}
	repo, _, err := openRepo()
	if err != nil {
		return fail(err)
	}
	defer repo.Close()

	baskets := services.NewBasketService(repo)
	if err := baskets.SetQuantity(ctx, id, f.Arg(1), qty); err != nil {
		logCLIError(ctx, repo, err)
		return fail(err)
	}
	fmt.Printf("\nUpdated quantity for %s in basket %d to %d\n", f.Arg(1), id, qty)
	return subcommands.ExitSuccess
}

type removeItemCmd struct{}

func (*removeItemCmd) Name() string     { return "remove-item" }
func (*removeItemCmd) Synopsis() string { return "remove a product from a template basket" }
func (*removeItemCmd) Usage() string {
	return `basketcase remove-item <basket-id> <product-id>
`
}
func (*removeItemCmd) SetFlags(*flag.FlagSet) {}

func (c *removeItemCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usageErr("expected <basket-id> and <product-id> arguments")
	}
	id, err := parseBasketID(f.Arg(0))
	if err != nil {
		return usageErr("%v", err)
	}
	repo, _, err := openRepo()
	if err != nil {
		return fail(err)
	}
	defer repo.Close()

	baskets := services.NewBasketService(repo)
	if err := baskets.RemoveItem(ctx, id, f.Arg(1)); err != nil {
		logCLIError(ctx, repo, err)
		return fail(err)
	}
	fmt.Printf("\nRemoved %s from basket %d\n", f.Arg(1), id)
	return subcommands.ExitSuccess
}

type saveBasketCmd struct{}

func (*saveBasketCmd) Name() string     { return "save-basket" }
func (*saveBasketCmd) Synopsis() string { return "freeze a template basket" }
func (*saveBasketCmd) Usage() string {
	return `basketcase save-basket <basket-id>

  Makes the basket immutable. Use clone-basket to derive a changed copy.
`
}
func (*saveBasketCmd) SetFlags(*flag.FlagSet) {}

func (c *saveBasketCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageErr("expected a <basket-id> argument")
	}
	id, err := parseBasketID(f.Arg(0))
	if err != nil {
		return usageErr("%v", err)
	}
	repo, _, err := openRepo()
	if err != nil {
		return fail(err)
	}
	defer repo.Close()

	baskets := services.NewBasketService(repo)
	if err := baskets.Save(ctx, id); err != nil {
		logCLIError(ctx, repo, err)
		return fail(err)
	}
	fmt.Printf("\nSaved basket %d\n", id)
	return subcommands.ExitSuccess
}

type cloneBasketCmd struct{}

func (*cloneBasketCmd) Name() string     { return "clone-basket" }
func (*cloneBasketCmd) Synopsis() string { return "clone an existing basket" }
func (*cloneBasketCmd) Usage() string {
	return `basketcase clone-basket <basket-id> <new-name>

  Copies the basket's items into a new template basket whose parent
  reference points at the source.
`
}
func (*cloneBasketCmd) SetFlags(*flag.FlagSet) {}

func (c *cloneBasketCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usageErr("expected <basket-id> and <new-name> arguments")
	}
	id, err := parseBasketID(f.Arg(0))
	if err != nil {
		return usageErr("%v", err)
	}
	repo, _, err := openRepo()
	if err != nil {
		return fail(err)
	}
	defer repo.Close()

	baskets := services.NewBasketService(repo)
	clone, err := baskets.Clone(ctx, id, f.Arg(1))
	if err != nil {
		logCLIError(ctx, repo, err)
		return fail(err)
	}
	fmt.Printf("\nCloned basket:\nOriginal ID: %d\nNew ID: %d\nNew Name: %s\n", id, clone.ID, clone.Name)
	return subcommands.ExitSuccess
}

type listBasketsCmd struct{}

func (*listBasketsCmd) Name() string     { return "baskets" }
func (*listBasketsCmd) Synopsis() string { return "list all baskets" }
func (*listBasketsCmd) Usage() string {
	return `basketcase baskets
`
}
func (*listBasketsCmd) SetFlags(*flag.FlagSet) {}

func (c *listBasketsCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	repo, _, err := openRepo()
	if err != nil {
		return fail(err)
	}
	defer repo.Close()

	baskets, err := services.NewBasketService(repo).List(ctx)
	if err != nil {
		logCLIError(ctx, repo, err)
		return fail(err)
	}
	if len(baskets) == 0 {
		fmt.Println("No baskets yet.")
		return subcommands.ExitSuccess
	}
	for _, b := range baskets {
		state := "saved"
		if b.IsTemplate {
			state = "template"
		}
		fmt.Printf("%d\t%s\t%s\t%s\tcreated %s\n",
			b.ID, b.Name, b.StoreID, state, b.CreatedAt.Format("2006-01-02"))
	}
	return subcommands.ExitSuccess
}
