package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/thruflo/rain/internal/config"
	"github.com/thruflo/rain/internal/logging"
	"github.com/thruflo/rain/internal/store"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	configPath string
	serverFlag string
	tokenFlag  string
	logLevel   string
	logFile    string
)

// ownsTerminal marks commands that take over the terminal.
const ownsTerminal = "owns-terminal"

// cfg is the configuration loaded before every command runs.
var cfg *config.Config

var logCloser io.Closer

// newStore builds the remote store; tests replace it.
var newStore = func(c *config.Config) (store.Store, error) {
	return store.NewHTTPClient(c.ServerURL, store.WithTimeout(c.Sync.Timeout))
}

var rootCmd = &cobra.Command{
	Use:   "rain",
	Short: "Edit RISC-V VM sessions kept in a remote session store",
	Long: `Rain opens a virtual machine session from a remote store, shows its
registers and an instruction listing of its memory, and lets you edit
them. Edits are uploaded in the background while the editor is open.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("rain version {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/rain/config.yaml)")
	flags.StringVar(&serverFlag, "server", "", "session store URL")
	flags.StringVar(&tokenFlag, "token", "", "bearer token for the session store (or "+config.EnvToken+")")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&logFile, "log-file", "", "append logs to this file")
}

// Execute runs the root command. Interrupts cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// setup loads the config, applies flag overrides and configures logging.
func setup(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if serverFlag != "" {
		c.ServerURL = serverFlag
	}
	if tokenFlag != "" {
		c.Token = tokenFlag
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if logFile != "" {
		c.Log.File = logFile
	}
	if err := config.ValidateConfig(c); err != nil {
		return err
	}
	cfg = c

	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	// The editor owns the terminal; its logs only go to the log file.
	closer, err := logging.Setup(level, c.Log.File, cmd.Annotations[ownsTerminal] == "true")
	if err != nil {
		return err
	}
	logCloser = closer

	logging.Debug("config loaded", "path", path, "server", c.ServerURL)
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if logCloser == nil {
		return nil
	}
	err := logCloser.Close()
	logCloser = nil
	return err
}

// remote returns the store and token for commands that talk to the server.
func remote() (store.Store, string, error) {
	if cfg.Token == "" {
		return nil, "", fmt.Errorf("no token: use --token, %s or the config file", config.EnvToken)
	}
	st, err := newStore(cfg)
	if err != nil {
		return nil, "", err
	}
	return st, cfg.Token, nil
}

// isTerminal reports whether f is a terminal; tests replace it.
var isTerminal = func(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// useColor reports whether output to f may use ANSI colours.
func useColor(f *os.File) bool {
	_, noColor := os.LookupEnv("NO_COLOR")
	return !noColor && isTerminal(f)
}
