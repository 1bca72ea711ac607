package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/oauth2"

	"github.com/joshsymonds/gworkspace/internal/config"
	"github.com/joshsymonds/gworkspace/internal/runtime"
)

type authConfig struct {
	credentials string
	token       string
	port        int
	force       bool
	reauth      bool
	verify      bool
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("gworkspace-auth failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() authConfig {
	credentials := flag.String("credentials", "", "OAuth client credentials.json (overrides config)")
	token := flag.String("token", "", "token file (overrides config)")
	port := flag.Int("port", 0, "loopback redirect port (overrides config)")
	force := flag.Bool("force", false, "ignore the in-memory token and re-validate from disk")
	reauth := flag.Bool("reauth", false, "delete the stored token and run the consent flow")
	verify := flag.Bool("verify", false, "call each API once to prove the token works")
	flag.Parse()

	return authConfig{
		credentials: *credentials,
		token:       *token,
		port:        *port,
		force:       *force,
		reauth:      *reauth,
		verify:      *verify,
	}
}

func run(cfg authConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conf, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.credentials != "" {
		conf.CredentialsPath = cfg.credentials
	}
	if cfg.token != "" {
		conf.TokenPath = cfg.token
	}
	if cfg.port > 0 {
		conf.RedirectPort = cfg.port
	}

	if cfg.reauth {
		if err := os.Remove(conf.TokenPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove token: %w", err)
		}
	}

	logger := runtime.DefaultLogger()
	mgr := runtime.NewManager(conf, logger)
	tok, err := mgr.Credentials(ctx, cfg.force)
	if err != nil {
		return fmt.Errorf("credentials: %w", err)
	}
	printStatus(os.Stdout, conf, tok)

	if !cfg.verify {
		return nil
	}
	ws, err := runtime.Open(ctx, mgr, conf.RequestsPerSecond, logger)
	if err != nil {
		return err
	}
	labels, err := ws.Gmail.ListLabels(ctx)
	if err != nil {
		return fmt.Errorf("verify gmail: %w", err)
	}
	cals, err := ws.Calendar.ListCalendars(ctx)
	if err != nil {
		return fmt.Errorf("verify calendar: %w", err)
	}
	lists, err := ws.Tasks.ListTaskLists(ctx)
	if err != nil {
		return fmt.Errorf("verify tasks: %w", err)
	}
	if _, err := ws.Drive.Query().Limit(1).Exists(ctx); err != nil {
		return fmt.Errorf("verify drive: %w", err)
	}
	fmt.Printf("verified: %d labels, %d calendars, %d task lists, drive reachable\n", len(labels), len(cals), len(lists))
	return nil
}

func printStatus(w io.Writer, conf config.Config, tok *oauth2.Token) {
	fmt.Fprintf(w, "token file:    %s\n", conf.TokenPath)
	fmt.Fprintf(w, "credentials:   %s\n", conf.CredentialsPath)
	if tok.Expiry.IsZero() {
		fmt.Fprintln(w, "expires:       never")
	} else {
		fmt.Fprintf(w, "expires:       %s (in %s)\n", tok.Expiry.Local().Format(time.RFC1123), time.Until(tok.Expiry).Round(time.Second))
	}
	fmt.Fprintf(w, "refreshable:   %t\n", tok.RefreshToken != "")
	if scopes, ok := tok.Extra("scope").(string); ok && scopes != "" {
		fmt.Fprintf(w, "scopes:        %s\n", strings.Join(strings.Fields(scopes), ", "))
	}
}
