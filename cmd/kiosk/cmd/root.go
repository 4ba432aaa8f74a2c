package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"

	"libkiosk/internal/app/server"
	"libkiosk/internal/config"
	"libkiosk/internal/utils/logger"
)

var (
	cfgFile    string
	jsonOutput bool

	cfg *config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "kiosk",
	Short: "Library kiosk with a local-first ledger",
	Long: `kiosk runs the self-service library station: face recognition, RFID
scanning, lending and returns against a local ledger that is synced to the
remote catalog through an outbox.

Settings come from the environment, an optional .env file and --config.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("read config %s: %w", cfgFile, err)
			}
		}
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}
	log = logger.New(cfg.Env)
	return nil
}

// openApp builds the application for one-shot commands. The caller closes it.
func openApp(ctx context.Context) (*server.App, error) {
	app, err := server.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init kiosk: %w", err)
	}
	return app, nil
}

// printResult writes v as indented JSON when --json is set and as text otherwise.
func printResult(text string, v any) error {
	if !jsonOutput {
		fmt.Println(text)
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, syncCmd, apikeyCmd, userCmd)
}
