// socketwatch mounts a socket provider against a running huddle site and
// prints connection transitions and inbound frames to the console.
// Usage: go run ./cmd/socketwatch --config configs/huddle.example.yaml
//
// Optional environment variables:
//
//	HUDDLE_SESSION - Session token sent as the session cookie during the handshake
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/huddle/internal/config"
	"github.com/rickgao/huddle/internal/socket"
	"github.com/rickgao/huddle/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/huddle.example.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "pretty-print JSON frames")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Site.URL == "" {
		logger.Error("site.url is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	clientCfg := clientConfig(cfg.Socket)
	if token := os.Getenv("HUDDLE_SESSION"); token != "" {
		cookie := &http.Cookie{Name: cfg.Identity.SessionCookie, Value: token}
		clientCfg.Header = http.Header{"Cookie": {cookie.String()}}
	}

	// Keep a reference to the client so we can print its frames
	var client *socket.Client
	build := socket.ClientFactory(clientCfg, logger)
	factory := func(baseURL string, opts socket.Options) (socket.Handle, error) {
		h, err := build(baseURL, opts)
		if err != nil {
			return nil, err
		}
		client = h.(*socket.Client)
		return h, nil
	}

	opts := socket.Options{Path: cfg.Socket.Path, AddTrailingSlash: cfg.Socket.AddTrailingSlash}
	provider := socket.NewProvider(cfg.Site.URL, opts, factory, logger)

	states, unsubscribe := provider.Subscribe()
	defer unsubscribe()

	logger.Info("mounting socket provider",
		"version", version.String(),
		"site_url", cfg.Site.URL,
		"path", opts.Path,
		"reconnect", clientCfg.Reconnect,
	)
	if err := provider.Mount(ctx); err != nil {
		logger.Error("failed to mount socket provider", "error", err)
		os.Exit(1)
	}

	go printStates(ctx, states, logger)
	go printMessages(client.Messages(), *verbose)

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				v := provider.Value()
				logger.Info("stats",
					"connected", v.Connected,
					"buffered", len(client.Messages()),
				)
			}
		}
	}()

	logger.Info("watching socket - press Ctrl+C to stop")

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")
	provider.Unmount()

	select {
	case <-client.Done():
	case <-time.After(5 * time.Second):
		logger.Warn("socket did not stop in time")
	}

	logger.Info("shutdown complete")
}

// clientConfig maps the socket config section onto the websocket client.
func clientConfig(sc config.SocketConfig) socket.ClientConfig {
	return socket.ClientConfig{
		Reconnect:          sc.ReconnectEnabled(),
		ReconnectBaseDelay: sc.ReconnectBaseDelay,
		ReconnectMaxDelay:  sc.ReconnectMaxDelay,
		HandshakeTimeout:   sc.HandshakeTimeout,
		PingInterval:       sc.PingInterval,
		PingTimeout:        sc.PingTimeout,
		WriteTimeout:       sc.WriteTimeout,
		BufferSize:         sc.BufferSize,
	}
}

func printStates(ctx context.Context, states <-chan socket.Value, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-states:
			if !ok {
				return
			}
			logger.Info("socket state",
				"handle", v.Handle != nil,
				"connected", v.Connected,
			)
		}
	}
}

func printMessages(frames <-chan socket.Message, verbose bool) {
	for msg := range frames {
		if verbose && json.Valid(msg.Data) {
			var buf bytes.Buffer
			if err := json.Indent(&buf, msg.Data, "", "  "); err == nil {
				fmt.Printf("[FRAME %s]\n%s\n", msg.ReceivedAt.Format(time.RFC3339Nano), buf.String())
				continue
			}
		}
		fmt.Printf("[FRAME %s] %s\n", msg.ReceivedAt.Format(time.RFC3339Nano), msg.Data)
	}
}
