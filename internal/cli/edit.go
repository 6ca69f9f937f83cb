package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/thruflo/rain/internal/emulator"
	"github.com/thruflo/rain/internal/logging"
	"github.com/thruflo/rain/internal/syncer"
	"github.com/thruflo/rain/internal/tui"
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Open a session in the editor",
	Long: `Opens a session full screen. Edits are uploaded every sync interval
while the editor is open, and once more when it closes.

Keys:
  j / k     step the program counter one instruction
  s         upload now
  :         command line: pc <hex>, x<N> <hex>, poke <addr> <byte>,
            load <path>, name <text>, save
  q         save and quit`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{ownsTerminal: "true"},
	RunE:        runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return errors.New("edit needs an interactive terminal")
	}

	st, token, err := remote()
	if err != nil {
		return err
	}

	snap, err := st.Fetch(cmd.Context(), token, args[0])
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}

	term := tui.NewTerminal(os.Stdin, os.Stdout)
	toasts := tui.NewToasts(cfg.UI.ToastTTL, term)
	session, err := emulator.New(emulator.Config{
		Sync:      syncer.Config{Interval: cfg.Sync.Interval, Timeout: cfg.Sync.Timeout},
		CacheSize: cfg.Decoder.CacheSize,
	}, snap, st, token, toasts, time.Now())
	if err != nil {
		return err
	}
	logging.Info("session opened", "id", snap.ID, "bytes", session.MemorySize())

	editor := tui.NewEditor(session, toasts, term, tui.Options{
		Tick:         cfg.UI.Tick,
		Color:        useColor(os.Stdout),
		LeaveTimeout: cfg.Sync.Timeout,
	})
	if err := editor.Run(cmd.Context()); err != nil {
		return err
	}

	stats := session.SyncStats()
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d uploads, %d failed)\n", session.Name(), stats.Succeeded+1, stats.Failed)
	return nil
}
