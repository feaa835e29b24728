package main

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/datacleaner/internal/clean"
	"github.com/sells-group/datacleaner/internal/model"
	"github.com/sells-group/datacleaner/internal/report"
	"github.com/sells-group/datacleaner/internal/service"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean a CSV or XLSX file",
	Long: "Cleans one file with the given options. Explicit options win over AI " +
		"suggestions (--ai), which win over domain defaults. The cleaned snapshot is " +
		"written next to the input unless --output is set; the report goes to stdout.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		input, _ := cmd.Flags().GetString("input")
		optsPath, _ := cmd.Flags().GetString("options")
		useAI, _ := cmd.Flags().GetBool("ai")
		output, _ := cmd.Flags().GetString("output")
		formatName, _ := cmd.Flags().GetString("report-format")
		noStore, _ := cmd.Flags().GetBool("no-store")

		if err := cfg.Validate("clean"); err != nil {
			return err
		}
		format, err := report.ParseFormat(formatName)
		if err != nil {
			return err
		}
		opts, err := loadOptions(optsPath)
		if err != nil {
			return err
		}

		svc, err := initService(ctx, !noStore)
		if err != nil {
			return err
		}
		defer closeService(svc)

		res, err := svc.Clean(ctx, service.Request{
			InputPath:  input,
			Options:    opts,
			UseAI:      useAI,
			OutputPath: output,
		})
		return writeCleanResult(cmd.OutOrStdout(), format, res, err)
	},
}

func init() {
	cleanCmd.Flags().String("input", "", "CSV or XLSX file to clean")
	cleanCmd.Flags().String("options", "", "cleaning options file (JSON or YAML)")
	cleanCmd.Flags().Bool("ai", false, "ask the AI advisor for suggestions")
	cleanCmd.Flags().String("output", "", "cleaned snapshot path (default cleaned_<name> next to the input)")
	cleanCmd.Flags().String("report-format", "text", "report format: json, markdown or text")
	cleanCmd.Flags().Bool("no-store", false, "do not record the run in run history")
	_ = cleanCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(cleanCmd)
}

// loadOptions reads a cleaning options file. YAML files are converted to the
// JSON wire shape so both go through the same strict parser.
func loadOptions(path string) (model.PartialConfig, error) {
	if path == "" {
		return model.PartialConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.PartialConfig{}, eris.Wrapf(err, "read options %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return model.PartialConfig{}, eris.Wrapf(err, "parse options %s", path)
		}
		if data, err = json.Marshal(doc); err != nil {
			return model.PartialConfig{}, eris.Wrap(err, "convert yaml options")
		}
	}
	return model.ParseOptions(data)
}

// writeCleanResult prints the report on success and the failure record when
// the run failed, returning err so the exit code reflects the failure.
func writeCleanResult(w io.Writer, format report.Format, res *service.Result, err error) error {
	if err != nil {
		var f *clean.RunFailure
		if errors.As(err, &f) {
			if wErr := report.WriteFailure(w, format, f.Record()); wErr != nil {
				return wErr
			}
		}
		return err
	}
	if err := report.Write(w, format, res.Report); err != nil {
		return err
	}
	if format == report.FormatText {
		_, err = io.WriteString(w, "cleaned file: "+res.OutputPath+"\n")
	}
	return eris.Wrap(err, "write output")
}
