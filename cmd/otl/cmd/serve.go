package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OpenTraceLab/OpenTraceLogic/internal/api"
	"github.com/spf13/cobra"
)

var (
	serveFlags sessionFlags
	serveAddr  string
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve [capture-file]",
	Short: "Serve decoder timelines over HTTP",
	Long: `Start the query API. Decoders and an optional capture come from --config
and the command line; more can be added over HTTP.

Examples:
  otl serve --config session.yaml
  otl serve spi.bin -d "spi ssn:0 sclk:1 mosi:2" --addr 127.0.0.1:9000`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveFlags.register(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := serveFlags.load(cmd, args)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	sess, err := buildSession(cfg)
	if err != nil {
		return err
	}
	e := api.New(api.NewHandler(sess, logger, rootCmd.Version), logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Int("decoders", sess.Registry().Len()).Msg("serving")
		errCh <- e.Start(cfg.Server.Addr)
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", cfg.Server.Addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
