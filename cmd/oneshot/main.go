// Command oneshot fetches a single HTTPS resource and prints the raw
// response on stdout. Progress goes to stderr.
//
// Usage:
//
//	oneshot -config fetch.yaml
//	oneshot -host example.edu -ca root.pem -path /index.html
//	oneshot -schema
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/reglet-dev/oneshot"
	"github.com/reglet-dev/oneshot/application/schema"
	"github.com/reglet-dev/oneshot/domain/entities"
	"github.com/reglet-dev/oneshot/infrastructure/hostlink"
	"github.com/reglet-dev/oneshot/infrastructure/netstack"
	"github.com/reglet-dev/oneshot/infrastructure/parser"
	"github.com/reglet-dev/oneshot/log"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("oneshot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML config file")
	host := fs.String("host", "", "server hostname (overrides config)")
	path := fs.String("path", "", "request path (overrides config)")
	caFile := fs.String("ca", "", "PEM or DER trust anchor file (overrides config)")
	level := fs.String("log-level", "", "debug, info, warn or error (overrides config)")
	printSchema := fs.Bool("schema", false, "print the config JSON schema and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *printSchema {
		data, err := schema.ConfigSchema()
		if err != nil {
			fmt.Fprintf(stderr, "generating schema: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, string(data))
		return 0
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *host != "" {
		cfg.Hostname = *host
	}
	if *path != "" {
		cfg.Path = *path
	}
	if *level != "" {
		cfg.LogLevel = *level
	}
	if *caFile != "" {
		anchor, err := os.ReadFile(*caFile)
		if err != nil {
			fmt.Fprintf(stderr, "reading trust anchor: %v\n", err)
			return 1
		}
		cfg.TrustAnchorFile = *caFile
		cfg.TrustAnchor = anchor
	}

	lvl, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	logger := slog.New(log.NewHandler(log.WithWriter(stderr), log.WithLevel(lvl)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack := netstack.New(netstack.WithLogger(logger))
	defer func() {
		if err := stack.Close(); err != nil {
			logger.Debug("closing network stack", "error", err)
		}
	}()

	deps := oneshot.Deps{
		Link:   hostlink.New(hostlink.WithLogger(logger)),
		Stack:  stack,
		TLS:    netstack.NewTLSProvider(),
		Output: stdout,
		Logger: logger,
	}
	if err := oneshot.Run(ctx, deps, cfg); err != nil {
		return 1
	}
	return 0
}

func loadConfig(path string) (*entities.Config, error) {
	if path == "" {
		cfg := entities.DefaultConfig()
		return &cfg, nil
	}
	return parser.NewYamlConfigParser().Load(path)
}
