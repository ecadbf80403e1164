package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/petal-labs/oaikit/cli/keystore"
)

func (a *App) newKeysCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored API keys",
		Long: `Manage API keys in the encrypted keystore (~/.oaikit/keys.enc).

Keys are looked up by profile name, or by the profile's api_key_ref.
Set OAIKIT_KEYSTORE_PASSPHRASE to encrypt with a passphrase instead of
the machine-derived key.`,
	}
	cmd.AddCommand(a.newKeysSetCommand(), a.newKeysListCommand(), a.newKeysDeleteCommand())
	return cmd
}

func (a *App) newKeysSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name>",
		Short: "Store an API key",
		Long:  `Store an API key. The key is read from the terminal without echo, or from stdin when piped.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			fmt.Fprintf(a.stderr, "Enter API key for %s: ", name)
			key, err := a.readSecret()
			if err != nil {
				return validationErr("read key: %w", err)
			}
			if key == "" {
				return validationErr("API key cannot be empty")
			}

			ks, err := a.newKeystore()
			if err != nil {
				return validationErr("open keystore: %w", err)
			}
			if err := ks.Set(name, key); err != nil {
				return validationErr("store key: %w", err)
			}
			fmt.Fprintf(a.stdout, "API key for %s stored.\n", name)
			return nil
		},
	}
}

// readSecret reads one line from stdin, without echo when it is a terminal.
func (a *App) readSecret() (string, error) {
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *App) newKeysListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored key names",
		Long:  `List stored key names. Key values are never printed.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := a.newKeystore()
			if err != nil {
				return validationErr("open keystore: %w", err)
			}
			names, err := ks.List()
			if err != nil {
				return validationErr("list keys: %w", err)
			}
			if a.jsonOutput {
				if names == nil {
					names = []string{}
				}
				return a.printJSON(map[string][]string{"keys": names})
			}
			if len(names) == 0 {
				fmt.Fprintln(a.stdout, "No API keys stored.")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(a.stdout, name)
			}
			return nil
		},
	}
}

func (a *App) newKeysDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := a.newKeystore()
			if err != nil {
				return validationErr("open keystore: %w", err)
			}
			if err := ks.Delete(args[0]); err != nil {
				var nf *keystore.ErrKeyNotFound
				if errors.As(err, &nf) {
					return exitWithCode(ExitValidation, fmt.Errorf("no key stored for %s: %w", args[0], err))
				}
				return validationErr("delete key: %w", err)
			}
			fmt.Fprintf(a.stdout, "API key for %s deleted.\n", args[0])
			return nil
		},
	}
}
