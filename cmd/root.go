package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/datacleaner/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "datacleaner",
	Short: "Profile and clean tabular datasets",
	Long: "Profiles CSV and XLSX files, resolves missing values, outliers and duplicates " +
		"with user, AI and domain-suggested strategies, and records every run with a full audit log.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
