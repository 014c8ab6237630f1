package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/qecdec/fusionmatch/pkg/visualize"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr string
	dir  string
}

func newServeCmd() *cobra.Command {
	var opts serveOpts
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host snapshot files for the browser visualizer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", ":8066", "listen address")
	cmd.Flags().StringVar(&opts.dir, "dir", ".", "directory containing snapshot .json files")
	return cmd
}

func runServe(ctx context.Context, opts serveOpts) error {
	logger := loggerFromContext(ctx)
	server := &http.Server{
		Addr:              opts.addr,
		Handler:           visualize.NewServer(opts.dir),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving snapshots", "addr", opts.addr, "dir", opts.dir)
		errCh <- server.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
