// Command basketcase tracks grocery prices and calculates a personal
// inflation index over user-defined baskets.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/google/subcommands"

	"basketcase/internal/cli"
	"basketcase/internal/config"
	"basketcase/internal/kroger"
	"basketcase/internal/log"
	"basketcase/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	cli.SetupLogger(log.ComponentCLI)

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&initCmd{}, "setup")

	commander.Register(&findStoresCmd{}, "catalog")
	commander.Register(&searchProductsCmd{}, "catalog")

	commander.Register(&createBasketCmd{}, "baskets")
	commander.Register(&addItemCmd{}, "baskets")
	commander.Register(&setQuantityCmd{}, "baskets")
	commander.Register(&removeItemCmd{}, "baskets")
	commander.Register(&saveBasketCmd{}, "baskets")
	commander.Register(&cloneBasketCmd{}, "baskets")
	commander.Register(&listBasketsCmd{}, "baskets")

	commander.Register(&calculateCmd{}, "reports")
	commander.Register(&historyCmd{}, "reports")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// openRepo loads config and opens the SQLite repository (running any
// pending migrations).
func openRepo() (*storage.SQLiteRepository, *config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return repo, cfg, nil
}

// openKroger builds the API client from config, requiring credentials.
func openKroger(ctx context.Context, cfg *config.Config) (*kroger.Client, error) {
	if err := cfg.RequireKrogerCredentials(); err != nil {
		return nil, err
	}
	return kroger.NewClient(ctx, cfg.KrogerBaseURL, cfg.KrogerClientID, cfg.KrogerClientSecret)
}

// logCLIError mirrors failed commands into the persistent error log.
func logCLIError(ctx context.Context, repo *storage.SQLiteRepository, err error) {
	if logErr := repo.LogError(ctx, "ERROR", log.ComponentCLI, err.Error(), ""); logErr != nil {
		slog.ErrorContext(ctx, "Failed to write error log", "error", logErr)
	}
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

func usageErr(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitUsageError
}

type initCmd struct{}

func (*initCmd) Name() string     { return "init" }
func (*initCmd) Synopsis() string { return "initialize the database" }
func (*initCmd) Usage() string {
	return `basketcase init

  Creates the SQLite database and applies schema migrations.
`
}
func (*initCmd) SetFlags(*flag.FlagSet) {}

func (*initCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	repo, cfg, err := openRepo()
	if err != nil {
		return fail(err)
	}
	defer repo.Close()
	fmt.Printf("Database initialized at %s\n", cfg.SQLiteDBPath)
	return subcommands.ExitSuccess
}
