package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nstehr/vimy/vimy-formula/agent"
	"github.com/nstehr/vimy/vimy-formula/ipc"
)

const banner = `
██╗   ██╗██╗███╗   ███╗██╗   ██╗
██║   ██║██║████╗ ████║╚██╗ ██╔╝
██║   ██║██║██╔████╔██║ ╚████╔╝
╚██╗ ██╔╝██║██║╚██╔╝██║  ╚██╔╝
 ╚████╔╝ ██║██║ ╚═╝ ██║   ██║
  ╚═══╝  ╚═╝╚═╝     ╚═╝   ╚═╝

Formula-Scripted Turn-Based AI`

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

func main() {
	socketPath := flag.String("socket", "/tmp/vimy-formula.sock", "unix socket to listen on")
	configPath := flag.String("config", "", "AI configuration file (YAML); the balanced doctrine when empty")
	watch := flag.Bool("watch", false, "reload the configuration file when it changes")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	level, err := parseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	fmt.Println(banner)

	slog.Info("starting vimy-formula")

	cfg := agent.DefaultConfig()
	if *configPath != "" {
		if cfg, err = agent.LoadConfig(*configPath); err != nil {
			slog.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}
	store := agent.NewConfigStore(cfg)
	slog.Info("config loaded", "side", cfg.Side, "doctrine", cfg.Doctrine.Name, "stages", len(cfg.Stages))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *watch && *configPath != "" {
		w, err := agent.NewWatcher(*configPath, store)
		if err != nil {
			slog.Error("failed to watch config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		defer w.Close()
		go w.Run(ctx)
	}

	listener, err := listen(*socketPath)
	if err != nil {
		slog.Error("failed to listen on socket", "path", *socketPath, "error", err)
		os.Exit(1)
	}
	defer os.Remove(*socketPath)
	slog.Info("listening on domain socket", "path", *socketPath)

	serve(ctx, listener, store)
	slog.Info("shutting down")
}

// listen binds the unix socket at path. A socket file left behind by an
// unclean shutdown is removed first.
func listen(path string) (net.Listener, error) {
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("clean up %s: %w", path, err)
	}
	return net.Listen("unix", path)
}

// serve accepts host connections until ctx is done. Every connection plays
// its own side with its own variable store.
func serve(ctx context.Context, ln net.Listener, store *agent.ConfigStore) {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("failed to accept connection", "error", err)
			continue
		}
		slog.Info("new connection accepted")
		go handleConn(conn, store)
	}
}

func handleConn(conn net.Conn, store *agent.ConfigStore) {
	c := ipc.NewConnection(conn, nil)
	a := agent.New(c, agent.NewAI(store))
	c.RegisterHandler(ipc.TypeHello, a.HandleHello)
	c.RegisterHandler(ipc.TypeTurn, a.HandleTurn)
	c.ReadLoop()
}
