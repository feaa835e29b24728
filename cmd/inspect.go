package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/datacleaner/internal/profile"
	"github.com/sells-group/datacleaner/internal/recommend"
	"github.com/sells-group/datacleaner/internal/report"
	"github.com/sells-group/datacleaner/internal/tabular"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Print per-column statistics for a file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		input, _ := cmd.Flags().GetString("input")
		ds, err := tabular.ReadFile(cmd.Context(), input)
		if err != nil {
			return err
		}
		return report.WriteJSON(cmd.OutOrStdout(), recommend.Analyze(ds, profile.Dataset(ds)))
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Detect the dataset's domain and its suggested defaults",
	RunE: func(cmd *cobra.Command, _ []string) error {
		input, _ := cmd.Flags().GetString("input")
		classifier, err := initClassifier()
		if err != nil {
			return err
		}
		ds, err := tabular.ReadFile(cmd.Context(), input)
		if err != nil {
			return err
		}
		return report.WriteJSON(cmd.OutOrStdout(), classifier.Classify(ds))
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Ask the AI advisor for cleaning suggestions",
	Long:  "Prints the advisor's suggestions. When the advisor is unavailable the default payload is printed with fallback set.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		input, _ := cmd.Flags().GetString("input")
		if err := cfg.Validate("recommend"); err != nil {
			return err
		}
		ds, err := tabular.ReadFile(cmd.Context(), input)
		if err != nil {
			return err
		}
		return report.WriteJSON(cmd.OutOrStdout(), initAdvisor().Recommend(cmd.Context(), ds))
	},
}

func init() {
	for _, c := range []*cobra.Command{profileCmd, classifyCmd, recommendCmd} {
		c.Flags().String("input", "", "CSV or XLSX file")
		_ = c.MarkFlagRequired("input")
		rootCmd.AddCommand(c)
	}
}
