package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thruflo/rain/internal/logging"
	"github.com/thruflo/rain/internal/server"
)

var (
	serveAddr     string
	serveInsecure bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an in-memory session store",
	Long: `Runs a session store server backed by memory. Sessions are lost when
the server stops.

Clients authenticate with a bearer token checked against server.token_hash
in the config file (see hash-token). --insecure accepts any token and is
meant for local testing only.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveInsecure, "insecure", false, "accept any bearer token")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	if cfg.Server.TokenHash == "" && !serveInsecure {
		return fmt.Errorf("server.token_hash is not set: run 'rain hash-token' and add it to the config, or use --insecure")
	}

	srv, err := server.NewServer(server.Config{
		Addr:      addr,
		TokenHash: cfg.Server.TokenHash,
		Insecure:  serveInsecure,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	go func() {
		<-ctx.Done()
		logging.Info("shutting down")
		if err := srv.Stop(); err != nil {
			logging.Error("shutdown failed", "error", err)
		}
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "Serving sessions on http://%s/api/\n", addr)
	return srv.Start(ctx)
}
