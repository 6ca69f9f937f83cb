package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thruflo/rain/internal/asm"
	"github.com/thruflo/rain/internal/store"
	"github.com/thruflo/rain/internal/vm"
)

var (
	listPage int
	listSize int
	newName  string
	newImage string
	newPC    string
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session", "s"},
	Short:   "Manage sessions in the session store",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your sessions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a session",
	Long: `Creates an empty session and prints its id.

With --image the session memory is loaded from a raw or zstd-compressed
memory image before it is saved.`,
	Args: cobra.NoArgs,
	RunE: runSessionsNew,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a session",
	Args:    cobra.ExactArgs(1),
	RunE:    runSessionsRm,
}

func init() {
	sessionsListCmd.Flags().IntVar(&listPage, "page", 1, "page number, from 1")
	sessionsListCmd.Flags().IntVar(&listSize, "size", store.DefaultPageSize, "sessions per page")

	sessionsNewCmd.Flags().StringVarP(&newName, "name", "n", "", "session name")
	sessionsNewCmd.Flags().StringVarP(&newImage, "image", "i", "", "memory image to load")
	sessionsNewCmd.Flags().StringVar(&newPC, "pc", "", "initial program counter (hex)")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsNewCmd, sessionsShowCmd, sessionsRmCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	st, token, err := remote()
	if err != nil {
		return err
	}

	page, err := st.List(cmd.Context(), token, listPage, listSize)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	printSessions(cmd.OutOrStdout(), page)
	return nil
}

func printSessions(w io.Writer, page store.Page) {
	if len(page.Sessions) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return
	}

	idWidth := len("ID")
	nameWidth := len("NAME")
	for _, s := range page.Sessions {
		if len(s.ID) > idWidth {
			idWidth = len(s.ID)
		}
		if n := len(sessionName(s)); n > nameWidth {
			nameWidth = n
		}
	}

	fmt.Fprintf(w, "%-*s  %-*s  %s\n", idWidth, "ID", nameWidth, "NAME", "MODIFIED")
	fmt.Fprintf(w, "%s  %s  %s\n", strings.Repeat("-", idWidth), strings.Repeat("-", nameWidth), "--------")
	for _, s := range page.Sessions {
		fmt.Fprintf(w, "%-*s  %-*s  %s\n", idWidth, s.ID, nameWidth, sessionName(s), s.ModifiedAt)
	}

	pages := 1
	if page.Size > 0 {
		pages = (page.Total + page.Size - 1) / page.Size
	}
	fmt.Fprintf(w, "\nPage %d of %d (%d sessions)\n", page.Page, pages, page.Total)
}

func sessionName(s store.SessionInfo) string {
	if s.Name == nil || *s.Name == "" {
		return "-"
	}
	return *s.Name
}

func runSessionsNew(cmd *cobra.Command, args []string) error {
	st, token, err := remote()
	if err != nil {
		return err
	}

	var state vm.State
	if newPC != "" {
		if state.PC, err = vm.ParseHex(newPC); err != nil {
			return fmt.Errorf("invalid --pc: %w", err)
		}
	}
	if newImage != "" {
		if state.Memory, err = vm.LoadImage(newImage); err != nil {
			return err
		}
	}

	snap, err := st.Create(cmd.Context(), token)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if newName != "" || newImage != "" || newPC != "" {
		snap.Name = newName
		snap.CPU = store.NewCPU(state)
		if err := st.Upsert(cmd.Context(), token, snap); err != nil {
			return fmt.Errorf("failed to save session %s: %w", snap.ID, err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), snap.ID)
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	st, token, err := remote()
	if err != nil {
		return err
	}

	snap, err := st.Fetch(cmd.Context(), token, args[0])
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	printSession(cmd.OutOrStdout(), snap)
	return nil
}

func printSession(w io.Writer, snap store.Snapshot) {
	state := snap.CPU.State()
	records := asm.Decode(state.Memory, asm.RV64{})
	dropped := uint64(len(state.Memory)) - asm.Consumed(records)

	fmt.Fprintf(w, "ID:        %s\n", snap.ID)
	fmt.Fprintf(w, "Name:      %s\n", sessionName(snap.Info()))
	fmt.Fprintf(w, "Created:   %s\n", snap.CreatedAt)
	fmt.Fprintf(w, "Modified:  %s\n", snap.ModifiedAt)
	fmt.Fprintf(w, "PC:        %s\n", vm.FormatHex(state.PC))
	fmt.Fprintf(w, "Memory:    %d bytes, %d instructions", len(state.Memory), len(records))
	if dropped > 0 {
		fmt.Fprintf(w, ", %d trailing bytes", dropped)
	}
	fmt.Fprintln(w)

	var set []string
	for i, v := range state.Registers {
		if v != 0 {
			set = append(set, fmt.Sprintf("  %s = %s", vm.RegisterName(i), vm.FormatHex(v)))
		}
	}
	if len(set) == 0 {
		fmt.Fprintln(w, "Registers: all zero")
		return
	}
	fmt.Fprintln(w, "Registers:")
	for _, line := range set {
		fmt.Fprintln(w, line)
	}
}

func runSessionsRm(cmd *cobra.Command, args []string) error {
	st, token, err := remote()
	if err != nil {
		return err
	}

	if err := st.Delete(cmd.Context(), token, args[0]); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
	return nil
}
