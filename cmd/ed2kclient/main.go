package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/zt8989/ed2k-serverconn/config"
	"github.com/zt8989/ed2k-serverconn/ed2k"
	"github.com/zt8989/ed2k-serverconn/logging"
	"github.com/zt8989/ed2k-serverconn/serverconn"
	"github.com/zt8989/ed2k-serverconn/transfer"
)

func main() {
	var configPath string
	var metricsAddr string

	rootCmd := &cobra.Command{
		Use:   "ed2kclient",
		Short: "Connect to an ed2k index server and print its alerts",
		Long: `ed2kclient opens a server-connection session against an ed2k index
server, prints every alert it observes, and exits on Ctrl-C.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, metricsAddr)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "ed2kclient.yaml", "path to YAML config")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve /metrics on, e.g. :9191 (disabled if empty)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run(configPath, metricsAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logging.SetLevelFromString(cfg.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	hash, err := cfg.Hash()
	if err != nil {
		return fmt.Errorf("client hash: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := serverconn.NewMetrics(registry, "ed2kclient")
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logging.Errorf("metrics server stopped: %v", err)
			}
		}()
		logging.Infof("serving metrics on %s/metrics", metricsAddr)
	}

	sink := &stdoutAlertSink{}
	session := &cliSession{
		settings: serverconn.Settings{
			ServerHostname:            cfg.ServerHostname,
			ServerPort:                cfg.ServerPort,
			ClientHash:                hash,
			ClientName:                cfg.ClientName,
			ListenPort:                cfg.ListenPort,
			PeerConnectTimeoutSec:     cfg.PeerConnectTimeoutSec,
			ServerTimeoutSec:          cfg.ServerTimeoutSec,
			ServerKeepAliveTimeoutSec: cfg.ServerKeepAliveTimeoutSec,
			MaxInflatedFrameBytes:     cfg.MaxInflatedFrameBytes,
			ServerFlags:               cfg.ServerFlags,
			EmuleVersion:              cfg.EmuleVersion,
			ObfuscateHandshake:        cfg.ObfuscateHandshake,
		},
		alerts:   sink,
		manager:  transfer.NewManager(),
		executor: &goroutineExecutor{},
		stopped:  make(chan struct{}),
	}

	conn := serverconn.NewServerConnection(session)
	conn.SetMetrics(metrics)
	conn.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		conn.Close(nil)
	case <-session.stopped:
	}
	// After the signal branch this waits for ServerStopped to follow Close;
	// after the other branch the channel is already closed and this returns
	// at once.
	<-session.stopped
	return nil
}

// stdoutAlertSink prints every alert it receives; it posts everything.
type stdoutAlertSink struct{}

func (s *stdoutAlertSink) Post(a serverconn.Alert) {
	switch a.Kind {
	case serverconn.KindServerConnectionInitialized:
		fmt.Printf("[connected] client_id=0x%08x files=%d users=%d\n", a.ClientID, a.FileCount, a.UserCount)
	case serverconn.KindServerConnectionFailed:
		fmt.Printf("[failed] %v\n", a.Err)
	case serverconn.KindServerMessage:
		fmt.Printf("[server] %s\n", a.Text)
	case serverconn.KindServerStatus:
		fmt.Printf("[status] users=%d files=%d\n", a.UserCount, a.FileCount)
	case serverconn.KindSearchResult:
		fmt.Printf("[search_result] %d entries\n", len(a.Files))
		for _, f := range a.Files {
			fmt.Printf("  %s %s (%d bytes)\n", f.Hash, f.Name, f.Size)
		}
	}
}

func (s *stdoutAlertSink) ShouldPost(serverconn.AlertKind) bool { return true }

// goroutineExecutor is the simplest Executor that satisfies the session
// facade: every scheduled function gets its own goroutine.
type goroutineExecutor struct{}

func (goroutineExecutor) Go(fn func(context.Context)) {
	go fn(context.Background())
}

// cliSession is the minimal Session implementation this CLI needs: static
// settings, an always-posting alert sink, and an in-process transfer
// catalog with nothing registered (this CLI never issues
// post_sources_request, so find_transfer is never exercised, only present
// to satisfy the capability surface).
type cliSession struct {
	settings serverconn.Settings
	alerts   serverconn.AlertSink
	manager  *transfer.Manager
	executor serverconn.Executor
	stopped  chan struct{}
}

func (s *cliSession) Settings() serverconn.Settings { return s.settings }
func (s *cliSession) Alerts() serverconn.AlertSink  { return s.alerts }
func (s *cliSession) FindTransfer(hash ed2k.Hash) serverconn.SourceHandle {
	return s.manager.FindTransfer(hash)
}
func (s *cliSession) Executor() serverconn.Executor { return s.executor }

func (s *cliSession) ServerReady(clientID, fileCount, userCount, tcpFlags, auxPort uint32) {
	logging.Infof("server ready: id=0x%08x files=%d users=%d tcp_flags=0x%x aux_port=%d",
		clientID, fileCount, userCount, tcpFlags, auxPort)
}

func (s *cliSession) ServerStopped() {
	close(s.stopped)
}
