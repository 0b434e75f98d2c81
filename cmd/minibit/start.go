package minibit

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/minibit/minibit/internal/instruction"
	"github.com/minibit/minibit/internal/ledger"
	"github.com/minibit/minibit/internal/miner"
	"github.com/minibit/minibit/internal/wallet"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ledger node and interactive console",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runNode(cmd.Context())
	},
}

func runNode(parent context.Context) error {
	setupLogging()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Failing to open the store is the one startup condition that takes
	// the process down.
	store, err := ledger.Open(viper.GetString("db-path"))
	if err != nil {
		return err
	}
	defer store.Close()

	w, err := wallet.New(store, wallet.DefaultUTXOProvider(), nil, viper.GetString("keys-file"))
	if err != nil {
		return err
	}
	defer w.Close()

	address, err := w.CurrentAddress()
	if err != nil {
		return fmt.Errorf("wallet was not initialized properly: %w", err)
	}

	m, err := miner.New(store, address, miner.Config{
		Difficulty:   viper.GetInt("difficulty"),
		Reward:       float32(viper.GetFloat64("reward")),
		ShowProgress: true,
	}, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	w.SetSubmitter(m)

	slog.Info("Node started",
		"address", address,
		"difficulty", viper.GetInt("difficulty"),
		"db", viper.GetString("db-path"))

	g, gctx := errgroup.WithContext(ctx)

	if addr := viper.GetString("metrics-addr"); addr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, addr)
		})
	}

	g.Go(func() error {
		// Console EOF shuts the node down.
		defer stop()
		return runConsole(gctx, w, m)
	})

	return g.Wait()
}

// runConsole reads instructions line by line and dispatches each one to
// every subsystem; each subsystem ignores verbs outside its own set.
func runConsole(ctx context.Context, executors ...instruction.Executor) error {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("minibit> ")
		for scanner.Scan() {
			lines <- scanner.Text()
			fmt.Print("minibit> ")
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			inst, ok := instruction.Parse(line)
			if !ok {
				continue
			}
			for _, e := range executors {
				e.Execute(ctx, inst)
			}
		}
	}
}

func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	slog.Info("Metrics server listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	}
}
