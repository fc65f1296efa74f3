// Package ctl implements sessionctl, the operator CLI for the renewal store.
// Store settings come from the same TALENTHUB_ environment as the server.
package ctl

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"aidanwoods.dev/go-paseto"
	"golang.org/x/term"

	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/app"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/auth/session"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/security/password"
	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/security/token"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

const usage = `usage: sessionctl <command> [flags]

commands:
  migrate                      apply pending schema migrations
  sweep -older-than DURATION   delete records expired longer than DURATION ago
  revoke-all -identity ID      revoke every active renewal credential of ID
  list -identity ID            show renewal records of ID, newest first
  hash-password                read a password and print its stored hash
  gen-key -alg hs256|paseto|hmac
                               print fresh key material
`

type cli struct {
	stdin          io.Reader
	stdout, stderr io.Writer
	log            *slog.Logger
	now            func() time.Time
	loadConfig     func() (app.Config, error)
}

// Run executes one sessionctl command and returns the process exit code.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{
		stdin:      stdin,
		stdout:     stdout,
		stderr:     stderr,
		log:        slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
		now:        time.Now,
		loadConfig: storeConfig,
	}
	return c.run(ctx, args)
}

func (c *cli) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(c.stderr, usage)
		return exitUsage
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "migrate":
		err = c.migrate(ctx, rest)
	case "sweep":
		err = c.sweep(ctx, rest)
	case "revoke-all":
		err = c.revokeAll(ctx, rest)
	case "list":
		err = c.list(ctx, rest)
	case "hash-password":
		err = c.hashPassword(rest)
	case "gen-key":
		err = c.genKey(rest)
	case "help", "-h", "--help":
		fmt.Fprint(c.stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(c.stderr, "sessionctl: unknown command %q\n\n%s", cmd, usage)
		return exitUsage
	}

	var ue usageError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.As(err, &ue):
		fmt.Fprintf(c.stderr, "sessionctl: %v\n", err)
		return exitUsage
	default:
		fmt.Fprintf(c.stderr, "sessionctl: %v\n", err)
		return exitError
	}
}

type usageError string

func (e usageError) Error() string { return string(e) }

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

// storeConfig loads only the store settings; identity and CORS settings are
// irrelevant to the CLI and are not validated.
func storeConfig() (app.Config, error) {
	cfg := app.Config{
		StoreDriver: strings.ToLower(app.EnvString("TALENTHUB_STORE_DRIVER", "")),
		DatabaseURL: app.EnvString("TALENTHUB_DATABASE_URL", ""),
		DBMaxConns:  app.EnvInt32("TALENTHUB_DB_MAX_CONNS", 4),
		SQLitePath:  app.EnvString("TALENTHUB_SQLITE_PATH", "talenthub.db"),
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = app.DriverSQLite
		if cfg.DatabaseURL != "" {
			cfg.StoreDriver = app.DriverPostgres
		}
	}
	switch cfg.StoreDriver {
	case app.DriverSQLite:
	case app.DriverPostgres:
		if cfg.DatabaseURL == "" {
			return app.Config{}, fmt.Errorf("%w: postgres store requires TALENTHUB_DATABASE_URL", app.ErrConfig)
		}
	default:
		return app.Config{}, fmt.Errorf("%w: unknown TALENTHUB_STORE_DRIVER %q", app.ErrConfig, cfg.StoreDriver)
	}
	return cfg, nil
}

func (c *cli) openStore(ctx context.Context, migrate bool) (session.Store, app.Handles, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, app.Handles{}, err
	}
	cfg.DBMigrate = migrate
	return app.OpenStore(ctx, cfg, c.log)
}

func (c *cli) migrate(ctx context.Context, args []string) error {
	fs := c.flags("migrate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, h, err := c.openStore(ctx, true)
	if err != nil {
		return err
	}
	h.Close()
	fmt.Fprintln(c.stdout, "migrations applied")
	return nil
}

func (c *cli) sweep(ctx context.Context, args []string) error {
	fs := c.flags("sweep")
	olderThan := fs.Duration("older-than", 30*24*time.Hour, "delete records whose expiry is older than this")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *olderThan < 0 {
		return usageError("-older-than must not be negative")
	}

	store, h, err := c.openStore(ctx, false)
	if err != nil {
		return err
	}
	defer h.Close()

	cutoff := c.now().UTC().Add(-*olderThan)
	n, err := store.Sweep(ctx, cutoff)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "deleted %d records expired before %s\n", n, cutoff.Format(time.RFC3339))
	return nil
}

func (c *cli) revokeAll(ctx context.Context, args []string) error {
	fs := c.flags("revoke-all")
	id := fs.String("identity", "", "identity id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*id) == "" {
		return usageError("revoke-all requires -identity")
	}

	store, h, err := c.openStore(ctx, false)
	if err != nil {
		return err
	}
	defer h.Close()

	n, err := store.RevokeAll(ctx, c.now().UTC(), strings.TrimSpace(*id), session.ReasonAdmin)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "revoked %d active credentials for identity %s\n", n, *id)
	return nil
}

func (c *cli) list(ctx context.Context, args []string) error {
	fs := c.flags("list")
	id := fs.String("identity", "", "identity id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*id) == "" {
		return usageError("list requires -identity")
	}

	store, h, err := c.openStore(ctx, false)
	if err != nil {
		return err
	}
	defer h.Close()

	recs, err := store.ListByIdentity(ctx, strings.TrimSpace(*id))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCHAIN\tSTATUS\tREASON\tISSUED\tEXPIRES")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.ChainID, r.Status, dash(string(r.Reason)),
			r.IssuedAt.UTC().Format(time.RFC3339), r.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (c *cli) hashPassword(args []string) error {
	fs := c.flags("hash-password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw, err := password.FromEnv()
	if err != nil {
		return err
	}
	secret, err := c.readPassword()
	if err != nil {
		return err
	}
	if err := pw.Validate(secret); err != nil {
		return err
	}
	encoded, err := pw.Hash(secret)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, encoded)
	return nil
}

// readPassword prompts without echo on a terminal and reads one line otherwise.
func (c *cli) readPassword() (string, error) {
	if f, ok := c.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(c.stderr, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(c.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", usageError("empty password on stdin")
	}
	return line, nil
}

func (c *cli) genKey(args []string) error {
	fs := c.flags("gen-key")
	alg := fs.String("alg", "hs256", "hs256, paseto, or hmac")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch strings.ToLower(*alg) {
	case "hs256":
		k, err := token.NewSecret(48)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "TALENTHUB_SECRET_KEY=%s\n", k)
	case "hmac":
		k, err := token.NewSecret(token.MinHMACKeyBytes)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "TALENTHUB_TOKEN_HMAC_KEY=%s\n", k)
	case "paseto":
		sk := paseto.NewV4AsymmetricSecretKey()
		fmt.Fprintf(c.stdout, "TALENTHUB_PASETO_V4_SECRET_KEY_HEX=%s\n", sk.ExportHex())
		fmt.Fprintf(c.stdout, "# public key: %s\n", sk.Public().ExportHex())
	default:
		return usageError(fmt.Sprintf("unknown -alg %q", *alg))
	}
	return nil
}
