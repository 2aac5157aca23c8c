package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/konnectors/cozy-konnector-free-mobile/internal/bills"
	"github.com/konnectors/cozy-konnector-free-mobile/internal/config"
	apperr "github.com/konnectors/cozy-konnector-free-mobile/internal/errors"
	"github.com/konnectors/cozy-konnector-free-mobile/internal/portal"
	"github.com/konnectors/cozy-konnector-free-mobile/internal/resilience"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cmd := "bills"
	var args []string
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}

	switch cmd {
	case "--version", "-v", "version":
		fmt.Printf("freemobile %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case "--help", "-h", "help":
		printUsage(os.Stdout)
		return
	}

	// Logs go to stderr; stdout carries the JSON result.
	cfg := config.Load()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)
	log.Debug("freemobile starting", "version", Version, "built", BuildTime, "commit", GitCommit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "bills":
		err = runBills(ctx, cfg, log, os.Stdout)
	case "inspect":
		err = runInspect(args, os.Stdout, log)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		printUsage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		log.Error("command failed", "command", cmd, "code", apperr.CodeOf(err).String(), "error", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "freemobile - Free Mobile bill fetcher")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: freemobile [command] [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  bills                         Log in and print the bill list as JSON (default)")
	fmt.Fprintln(w, "  inspect [-o DIR] FILE...      Decode keypad images from disk")
	fmt.Fprintln(w, "  --version, -v                 Print version information")
	fmt.Fprintln(w, "  --help, -h                    Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  FREEMOBILE_LOGIN              Subscriber login (digits, required for bills)")
	fmt.Fprintln(w, "  FREEMOBILE_PASSWORD           Subscriber password (required for bills)")
	fmt.Fprintln(w, "  FREEMOBILE_BASE_URL           Portal base URL")
	fmt.Fprintln(w, "  FREEMOBILE_USER_AGENT         User-Agent header sent to the portal")
	fmt.Fprintln(w, "  FREEMOBILE_HTTP_TIMEOUT       Per-request timeout (default 30s)")
	fmt.Fprintln(w, "  FREEMOBILE_PRIMING_BUDGET     Minimum keypad priming time (default 4s)")
	fmt.Fprintln(w, "  FREEMOBILE_SEQUENTIAL_DECODE  Decode keypad images one at a time")
	fmt.Fprintln(w, "  FREEMOBILE_MAX_ATTEMPTS       Login attempts before giving up (default 3)")
	fmt.Fprintln(w, "  FREEMOBILE_LOG_LEVEL          debug, info, warn or error (default info)")
}

// billsOutput is the JSON document printed by the bills command.
type billsOutput struct {
	AccountLabel string       `json:"account_label"`
	ClientName   string       `json:"client_name"`
	AttemptID    string       `json:"attempt_id"`
	Bills        []bills.Bill `json:"bills"`
}

func runBills(ctx context.Context, cfg *config.Config, log *slog.Logger, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := portal.NewClient(portal.Options{
		BaseURL:          cfg.BaseURL,
		UserAgent:        cfg.UserAgent,
		Timeout:          cfg.HTTPTimeout,
		PrimingBudget:    cfg.PrimingBudget,
		SequentialDecode: cfg.SequentialDecode,
		SecondFactor:     newStdinPrompter(os.Stdin, os.Stderr),
		Logger:           log,
	})
	if err != nil {
		return err
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxAttempts
	retry.Logger = log

	creds := portal.Credentials{Login: cfg.Login, Password: cfg.Password}
	var session *portal.Session
	err = resilience.Retry(ctx, retry, func(attempt int) error {
		log.Debug("starting login attempt", "attempt", attempt)
		s, err := client.Login(ctx, creds)
		if err != nil {
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Logout(context.WithoutCancel(ctx)); err != nil {
			log.Warn("logout failed", "error", err)
		}
	}()

	list, err := session.Bills(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(billsOutput{
		AccountLabel: bills.AccountLabel(session.ClientName, cfg.Login),
		ClientName:   session.ClientName,
		AttemptID:    session.AttemptID,
		Bills:        list,
	})
}
