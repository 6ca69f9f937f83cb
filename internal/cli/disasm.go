package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thruflo/rain/internal/asm"
	"github.com/thruflo/rain/internal/vm"
)

var (
	disasmPC      string
	disasmSession bool
)

var disasmCmd = &cobra.Command{
	Use:   "disasm <image>",
	Short: "Print the instruction listing of a memory image",
	Long: `Decodes a raw or zstd-compressed memory image as RV64 code and prints
one line per instruction. Bytes that do not decode are listed as unknown
instructions. Trailing bytes too short for an instruction are reported on
stderr.

With --session the argument is a session id and its memory is fetched from
the session store instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runDisasm,
}

func init() {
	disasmCmd.Flags().StringVar(&disasmPC, "pc", "", "mark the instruction at this address (hex)")
	disasmCmd.Flags().BoolVar(&disasmSession, "session", false, "read memory from a stored session")
	rootCmd.AddCommand(disasmCmd)
}

func runDisasm(cmd *cobra.Command, args []string) error {
	var (
		memory []byte
		pc     uint64
		err    error
	)

	if disasmSession {
		st, token, err := remote()
		if err != nil {
			return err
		}
		snap, err := st.Fetch(cmd.Context(), token, args[0])
		if err != nil {
			return fmt.Errorf("failed to get session: %w", err)
		}
		state := snap.CPU.State()
		memory, pc = state.Memory, state.PC
	} else {
		if memory, err = vm.LoadImage(args[0]); err != nil {
			return err
		}
	}

	if disasmPC != "" {
		if pc, err = vm.ParseHex(disasmPC); err != nil {
			return fmt.Errorf("invalid --pc: %w", err)
		}
	}

	var table asm.OpcodeTable = asm.RV64{}
	if cfg.Decoder.CacheSize > 0 {
		cached, err := asm.NewCached(table, cfg.Decoder.CacheSize)
		if err != nil {
			return err
		}
		table = cached
	}

	records := asm.Decode(memory, table)
	out := cmd.OutOrStdout()
	for _, line := range asm.Listing(memory, records, pc) {
		fmt.Fprintln(out, line)
	}

	if dropped := uint64(len(memory)) - asm.Consumed(records); dropped > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d trailing bytes not decoded\n", dropped)
	}
	return nil
}
