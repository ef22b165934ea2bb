// Command facilityctl performs operator tasks against the booking database.
//
//	facilityctl [-db DSN] migrate
//	facilityctl [-db DSN] seed
//	facilityctl [-db DSN] make-admin <passport-id>
//	facilityctl [-db DSN] create-user -passport ID -name NAME -password PW [-admin]
//	facilityctl [-db DSN] list-users
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"

	"github.com/example/facility-booking/internal/adapters"
	"github.com/example/facility-booking/internal/application"
	"github.com/example/facility-booking/internal/config"
	"github.com/example/facility-booking/internal/logging"
	"github.com/example/facility-booking/internal/persistence/sqlite"
)

var errUsage = errors.New("usage: facilityctl [-db DSN] <migrate|seed|make-admin|create-user|list-users> [args]")

// operator is the principal used for CLI actions.
var operator = application.Principal{DisplayName: "facilityctl", IsAdmin: true}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadEnvFile(os.Getenv("FACILITY_ENV_FILE")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("facilityctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	dsn := global.String("db", cfg.SQLiteDSN, "SQLite DSN")
	verbose := global.Bool("v", false, "log service operations to stderr")
	if err := global.Parse(args); err != nil {
		return errUsage
	}
	if global.NArg() == 0 {
		return errUsage
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Level: level, Format: logging.FormatText, Writer: stderr})
	if err != nil {
		return err
	}

	storage, err := sqlite.Open(*dsn)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer storage.Close()

	command, rest := global.Arg(0), global.Args()[1:]
	if command == "migrate" {
		if err := storage.Migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "migrations applied")
		return nil
	}

	if err := storage.Migrate(ctx); err != nil {
		return err
	}
	users := application.NewUserServiceWithLogger(adapters.NewUserAdapter(storage), application.HashPassword, uuid.NewString, time.Now, logger)

	switch command {
	case "seed":
		params, err := cfg.Facility.SeedParams()
		if err != nil {
			return fmt.Errorf("facility definition: %w", err)
		}
		catalog := application.NewCatalogServiceWithLogger(adapters.NewCatalogAdapter(storage), uuid.NewString, time.Now, logger)
		result, err := catalog.Seed(ctx, params)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "courts added: %d, slots added: %d\n", result.CourtsAdded, result.SlotsAdded)
		return nil

	case "make-admin":
		if len(rest) != 1 {
			return fmt.Errorf("%w: make-admin <passport-id>", errUsage)
		}
		user, err := users.GrantAdmin(ctx, operator, rest[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s (%s) is now an administrator\n", user.PassportID, user.DisplayName)
		return nil

	case "create-user":
		fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
		fs.SetOutput(stderr)
		passport := fs.String("passport", "", "passport id")
		name := fs.String("name", "", "display name")
		password := fs.String("password", "", "initial password")
		admin := fs.Bool("admin", false, "grant administrator rights")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		user, err := users.CreateUser(ctx, application.CreateUserParams{
			Principal: operator,
			Input:     application.RegisterParams{PassportID: *passport, DisplayName: *name, Password: *password},
			IsAdmin:   *admin,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "created %s (%s)\n", user.PassportID, user.ID)
		return nil

	case "list-users":
		list, err := users.ListUsers(ctx, operator)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PASSPORT\tNAME\tADMIN\tFACE\tCREATED")
		for _, user := range list {
			fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%s\n", user.PassportID, user.DisplayName, user.IsAdmin, user.FaceRegistered, user.CreatedAt.UTC().Format(time.RFC3339))
		}
		return tw.Flush()
	}

	return fmt.Errorf("%w: unknown command %q", errUsage, command)
}
