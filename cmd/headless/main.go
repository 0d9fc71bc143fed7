// Command headless runs the emulator core behind the byte-framed control
// protocol in pkg/protocol, with no video/audio presentation attached -
// the transport for automated test harnesses and tooling, not players.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/nescore-emu/nescore/pkg/logger"
	"github.com/nescore-emu/nescore/pkg/protocol"
)

func main() {
	app := &cli.App{
		Name:  "headless",
		Usage: "run the NES core behind the headless control protocol",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "listen for one TCP client at host:port"},
			&cli.StringFlag{Name: "socket", Usage: "listen for one client on a unix domain socket path"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "off, error, warn, info, debug, trace"},
			&cli.StringFlag{Name: "log-file", Usage: "log file path (empty for stdout)"},
			&cli.BoolFlag{Name: "disable-sync", Usage: "omit the per-command sync counter byte"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.String("host") != "" && c.String("socket") != "" {
		return fmt.Errorf("--host and --socket are mutually exclusive; omit both to use stdin/stdout")
	}

	level := logger.GetLogLevelFromString(c.String("log-level"))
	if err := logger.Initialize(level, c.String("log-file")); err != nil {
		return err
	}
	defer logger.Close()

	srv := protocol.NewServer()
	srv.DisableSync = c.Bool("disable-sync")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	// Each serving goroutine cancels ctx when it returns, so a clean EOF
	// (which returns nil and so does not cancel the group) still stops the
	// signal watcher and lets run return.
	switch {
	case c.String("host") != "":
		g.Go(func() error { defer cancel(); return serveOneListener(ctx, "tcp", c.String("host"), srv) })
	case c.String("socket") != "":
		g.Go(func() error { defer cancel(); return serveOneListener(ctx, "unix", c.String("socket"), srv) })
	default:
		g.Go(func() error { defer cancel(); return srv.Serve(os.Stdin, os.Stdout) })
	}

	g.Go(func() error { return watchSignals(ctx) })

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.LogError("headless: %v", err)
	}
	return nil
}

// serveOneListener accepts exactly one client connection and serves the
// protocol on it; the listener (and, via ctx, the signal watcher) is torn
// down the same way whether the client disconnects or a signal arrives.
func serveOneListener(ctx context.Context, network, addr string, srv *protocol.Server) error {
	ln, err := net.Listen(network, addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil // listener closed by signal watcher, not an error
		}
		return err
	}
	defer conn.Close()

	return srv.Serve(conn, conn)
}

// watchSignals blocks until SIGINT/SIGTERM or ctx is already done by some
// other goroutine's error, at which point it returns so errgroup tears
// down the rest of the group - the same signal.Notify-driven shutdown
// shape as a REPL run loop, repurposed for a server that has no operator
// to hit Ctrl-C at a prompt.
func watchSignals(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		return context.Canceled
	case <-ctx.Done():
		return nil
	}
}
