// Package ctl implements the newsletterctl operator commands.
package ctl

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"newsletter/cmd/identity"
	"newsletter/cmd/internal/app"
	"newsletter/cmd/internal/migrations"
	"newsletter/cmd/security/password"
)

// ErrUsage is returned for unknown commands or bad flags.
var ErrUsage = errors.New("usage")

const usage = `usage: newsletterctl <command> [flags]

commands:
  migrate                        create the schema and apply pending migrations
  add-user -username <name>      provision a publisher credential (password read from the terminal or stdin)
`

// IO bundles the streams a command talks to.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdIO returns the process streams.
func StdIO() IO { return IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr} }

// Run dispatches args[0] to its command.
func Run(ctx context.Context, args []string, stdio IO) error {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stdio.Err, usage)
		return ErrUsage
	}

	switch args[0] {
	case "migrate":
		return runMigrate(ctx, args[1:], stdio)
	case "add-user":
		return runAddUser(ctx, args[1:], stdio)
	case "help", "-h", "--help":
		_, _ = fmt.Fprint(stdio.Out, usage)
		return nil
	default:
		_, _ = fmt.Fprintf(stdio.Err, "unknown command %q\n\n%s", args[0], usage)
		return ErrUsage
	}
}

func runMigrate(ctx context.Context, args []string, stdio IO) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stdio.Err)
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}

	cfg, err := dbConfig()
	if err != nil {
		return err
	}
	log := app.NewLogger(cfg.LogLevel, cfg.LogFormat)

	pool, err := app.NewDBPool(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	if err := app.Migrate(ctx, pool, cfg.DBSchema); err != nil {
		return err
	}
	v, err := migrations.Version(ctx, pool)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdio.Out, "schema %s at version %d\n", cfg.DBSchema, v)
	return nil
}

func runAddUser(ctx context.Context, args []string, stdio IO) error {
	fs := flag.NewFlagSet("add-user", flag.ContinueOnError)
	fs.SetOutput(stdio.Err)
	username := fs.String("username", "", "publisher username")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if strings.TrimSpace(*username) == "" {
		_, _ = fmt.Fprintln(stdio.Err, "add-user: -username is required")
		return ErrUsage
	}

	cfg, err := dbConfig()
	if err != nil {
		return err
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		return err
	}

	pw, err := promptPassword(stdio)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	log := app.NewLogger(cfg.LogLevel, cfg.LogFormat)
	pool, err := app.NewDBPool(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	store, err := identity.NewPostgresStore(pool,
		identity.WithSchema(cfg.DBSchema),
		identity.WithAcquireTimeout(cfg.DBAcquireTimeout),
	)
	if err != nil {
		return err
	}
	return addUser(ctx, store, pwCfg, *username, pw, stdio.Out)
}

// addUser provisions one credential and prints its id.
func addUser(ctx context.Context, store identity.Store, cfg password.Config, username, pw string, out io.Writer) error {
	cred, err := identity.Provision(ctx, store, cfg, identity.ProvisionInput{
		Username: username,
		Password: pw,
	})
	switch {
	case err == nil:
	case identity.IsConflict(err):
		return fmt.Errorf("add-user: username %q already exists", strings.TrimSpace(username))
	case identity.IsInvalidInput(err):
		return fmt.Errorf("add-user: %w", err)
	default:
		return err
	}
	_, _ = fmt.Fprintf(out, "created user %s (%s)\n", cred.Username, cred.UserID)
	return nil
}

// promptPassword reads a password without echo from a terminal, or one line from piped stdin.
func promptPassword(stdio IO) (string, error) {
	if f, ok := stdio.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(stdio.Err, "Enter password: ")
		pw, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(stdio.Err)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(stdio.In).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// dbConfig loads app config and insists on a database.
func dbConfig() (app.Config, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return app.Config{}, err
	}
	if cfg.DatabaseURL == "" {
		return app.Config{}, fmt.Errorf("%sDATABASE_URL is required", app.EnvPrefix)
	}
	cfg.MigrateOnStart = false
	return cfg, nil
}
