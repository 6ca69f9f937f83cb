package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thruflo/rain/internal/auth"
)

var hashGenerate bool

var hashTokenCmd = &cobra.Command{
	Use:   "hash-token",
	Short: "Hash a bearer token for server.token_hash",
	Long: `Prompts for a token (twice, without echo) and prints its argon2id hash
for the server.token_hash config setting.

With --generate a random token is created instead; the token goes to
stderr and the hash to stdout.`,
	Args: cobra.NoArgs,
	RunE: runHashToken,
}

func init() {
	hashTokenCmd.Flags().BoolVar(&hashGenerate, "generate", false, "generate a random token")
	rootCmd.AddCommand(hashTokenCmd)
}

// promptToken reads a token from the terminal; tests replace it.
var promptToken = func() (string, error) {
	if !isTerminal(os.Stdin) {
		return "", errors.New("hash-token needs an interactive terminal (or use --generate)")
	}
	return auth.PromptAndConfirmToken(int(os.Stdin.Fd()), os.Stderr)
}

func runHashToken(cmd *cobra.Command, args []string) error {
	var (
		token string
		err   error
	)
	if hashGenerate {
		if token, err = auth.GenerateToken(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Token: %s\n", token)
	} else {
		if token, err = promptToken(); err != nil {
			return err
		}
	}

	hash, err := auth.HashToken(token, auth.DefaultParams)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
