package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"

	"basketcase/internal/core"
	"basketcase/internal/services"
)

type calculateCmd struct {
	asOf string
}

func (*calculateCmd) Name() string     { return "calculate" }
func (*calculateCmd) Synopsis() string { return "calculate the inflation index for a basket" }
func (*calculateCmd) Usage() string {
	return `basketcase calculate [-date YYYY-MM-DD] <basket-id>

  Compares current prices against the prices captured when the basket
  was created and appends the result to the index history.
`
}

func (c *calculateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.asOf, "date", "", "calculation date (YYYY-MM-DD, default now)")
}

func (c *calculateCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageErr("expected a <basket-id> argument")
	}
	id, err := parseBasketID(f.Arg(0))
	if err != nil {
		return usageErr("%v", err)
	}
	var asOf time.Time
	if c.asOf != "" {
		if asOf, err = time.Parse("2006-01-02", c.asOf); err != nil {
			return usageErr("invalid -date %q, want YYYY-MM-DD", c.asOf)
		}
		// End of the chosen day, so same-day observations count.
		asOf = asOf.Add(24*time.Hour - time.Nanosecond)
	}
	repo, _, err := openRepo()
	if err != nil {
		return fail(err)
	}
	defer repo.Close()

	svc := services.NewInflationService(repo, repo, repo, repo)
	report, err := svc.Calculate(ctx, id, asOf)
	if err != nil {
		logCLIError(ctx, repo, err)
		return fail(err)
	}

	printReport(report)
	return subcommands.ExitSuccess
}

func printReport(report core.InflationReport) {
	fmt.Printf("\nInflation Report: %s\n", report.BasketName)
	fmt.Printf("Store: %s\n", report.StoreID)
	fmt.Printf("Base Date: %s\n", report.BaseDate.Format("2006-01-02"))
	fmt.Printf("Calculated: %s\n", report.CalculatedAt.Format("2006-01-02"))
	fmt.Printf("\nBase Index:    100.00\n")
	fmt.Printf("Current Index: %s\n", core.RoundMoney(report.IndexValue).StringFixed(2))
	fmt.Printf("Change:        %s%%\n", core.RoundMoney(report.Percentage).StringFixed(2))
	fmt.Printf("Items Used:    %d of %d\n", report.ItemsUsed, report.ItemsTotal)

	if len(report.Categories) > 0 {
		fmt.Println("\nBy Category:")
		for _, cat := range report.Categories {
			fmt.Printf("  %-24s %s%%\n", cat.Name, core.RoundMoney(cat.Percentage).StringFixed(2))
		}
	}
	for _, ex := range report.Excluded {
		fmt.Printf("\nWarning: excluded %s (%s)\n", ex.ProductID, ex.Reason)
	}
}

type historyCmd struct{}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "show the index history of a basket" }
func (*historyCmd) Usage() string {
	return `basketcase history <basket-id>
`
}
func (*historyCmd) SetFlags(*flag.FlagSet) {}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
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

	history, err := repo.IndexHistory(ctx, id)
	if err != nil {
		logCLIError(ctx, repo, err)
		return fail(err)
	}
	if len(history) == 0 {
		fmt.Println("No index history yet. Run calculate first.")
		return subcommands.ExitSuccess
	}

	names := map[int64]string{}
	for _, row := range history {
		scope := "basket"
		if row.CategoryID != nil {
			name, ok := names[*row.CategoryID]
			if !ok {
				if cat, catErr := repo.GetCategory(ctx, *row.CategoryID); catErr == nil {
					name = cat.Name
				} else {
					name = fmt.Sprintf("category %d", *row.CategoryID)
				}
				names[*row.CategoryID] = name
			}
			scope = name
		}
		fmt.Printf("%s\t%-24s %s\n",
			row.CalculatedAt.Format("2006-01-02"), scope, core.RoundMoney(row.Value).StringFixed(2))
	}
	return subcommands.ExitSuccess
}
