// Package oneshot fetches a single HTTPS resource over a callback-driven
// network stack: bring the link up, resolve, connect with SNI, send one GET,
// print the raw response and shut down.
package oneshot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/reglet-dev/oneshot/client"
	"github.com/reglet-dev/oneshot/domain/entities"
	"github.com/reglet-dev/oneshot/domain/errors"
	"github.com/reglet-dev/oneshot/domain/ports"
)

// Deps are the collaborators a fetch runs on.
type Deps struct {
	Link   ports.Link
	Stack  ports.NetStack
	TLS    ports.TLSProvider
	Output io.Writer
	Logger *slog.Logger
}

// Run performs one fetch described by cfg. Response bytes go to
// deps.Output as they arrive; progress goes to deps.Logger. Every stage logs
// when it starts and when it succeeds or fails.
func Run(ctx context.Context, deps Deps, cfg *entities.Config) error {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	out := deps.Output
	if out == nil {
		out = os.Stdout
	}

	fail := func(stage string, err error) error {
		detail := errors.ToErrorDetail(err)
		logger.Error("Failed", "stage", stage, "type", detail.Type, "error", err)
		return err
	}

	if err := ValidateConfig(cfg); err != nil {
		return fail("config", err)
	}
	req, err := entities.NewGETRequest(cfg.Hostname, cfg.Path, cfg.Headers)
	if err != nil {
		return fail("config", &errors.ConfigError{Field: "path", Err: err})
	}

	logger.Info("Initializing network", "stage", "init")
	if err := deps.Link.Init(ctx); err != nil {
		return fail("init", err)
	}
	defer func() {
		if err := deps.Link.Deinit(); err != nil {
			logger.Warn("Releasing network failed", "error", err)
		}
	}()

	logger.Info("Joining network", "stage", "join", "interface", cfg.Network.Interface, "timeout", cfg.Network.JoinTimeout)
	if err := deps.Link.Join(ctx, cfg.Network.Interface, cfg.Network.JoinTimeout); err != nil {
		return fail("join", err)
	}
	logger.Info("Joined network", "stage", "join")

	c := client.New(deps.Stack, deps.TLS,
		client.WithConfig(*cfg),
		client.WithOutput(out),
		client.WithLogger(logger),
	)

	logger.Info("Resolving "+cfg.Hostname, "stage", "resolve")
	addr, err := c.Resolve(ctx, cfg.Hostname)
	if err != nil {
		return fail("resolve", err)
	}
	logger.Info(fmt.Sprintf("Resolved %s (%s)", cfg.Hostname, addr), "stage", "resolve")

	logger.Info(fmt.Sprintf("Connecting to https://%s:%d", addr, cfg.Port), "stage", "connect")
	sess, err := c.Connect(ctx, addr)
	if err != nil {
		return fail("connect", err)
	}
	logger.Info("Connected", "stage", "connect")

	logger.Info("Sending request", "stage", "send", "bytes", req.Len())
	if err := sess.Send(ctx, req); err != nil {
		return fail("send", err)
	}
	logger.Info("Request sent", "stage", "send")

	logger.Info("Awaiting response", "stage", "receive", "wait", cfg.ResponseWait)
	if err := sess.AwaitResponse(ctx, cfg.ResponseWait); err != nil {
		_ = sess.Close(context.WithoutCancel(ctx))
		return fail("receive", err)
	}
	cc := sess.Context()
	logger.Info("Response received", "stage", "receive", "bytes", cc.Received(), "peer_closed", cc.PeerClosed())

	if err := sess.Close(ctx); err != nil {
		return fail("close", err)
	}
	logger.Info("Exiting", "stage", "exit")
	return nil
}
