package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"libkiosk/internal/app/server/api/http/middleware/apikey"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage the webhook API key",
}

var apikeyHashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Print the bcrypt hash for WEBHOOK_API_KEY_HASH",
	Long: `hash reads the key without echo when stdin is a terminal, or from the first
line of stdin otherwise, and prints the value to put in WEBHOOK_API_KEY_HASH.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		key, err := readKey()
		if err != nil {
			return err
		}
		if len(key) < 16 {
			return errors.New("api key must be at least 16 characters")
		}

		hash, err := apikey.Hash(key)
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

func readKey() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "API key: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read api key: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read api key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func init() {
	apikeyCmd.AddCommand(apikeyHashCmd)
}
