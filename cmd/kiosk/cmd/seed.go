package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"libkiosk/internal/domain/book"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the book catalog into an empty ledger",
	Long: `seed inserts the bundled catalog, or the books listed in --file, when the
ledger has no books yet. Existing books are never touched.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		books := book.DefaultCatalog()
		if seedFile != "" {
			f, err := os.Open(seedFile)
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			books, err = book.LoadCatalog(f)
			f.Close()
			if err != nil {
				return err
			}
		}

		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		n, err := app.Books().Seed(cmd.Context(), books)
		if err != nil {
			return err
		}
		return printResult(fmt.Sprintf("seeded %d books", n), map[string]int{"seeded": n})
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML catalog to seed from")
}
