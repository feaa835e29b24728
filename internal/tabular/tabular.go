// Package tabular loads uploaded CSV and XLSX files into datasets and writes
// cleaned snapshots back in the same format.
package tabular

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/datacleaner/internal/model"
)

// Format is a supported file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = eris.New("tabular: unsupported file format")

// DetectFormat returns the format implied by the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", eris.Wrapf(ErrUnsupportedFormat, "tabular: %s", filepath.Base(path))
}

// ReadFile loads a CSV or XLSX file. The first row is the header.
func ReadFile(ctx context.Context, path string) (*model.Dataset, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	var header []string
	var records [][]string
	switch format {
	case FormatCSV:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "tabular: open csv")
		}
		defer f.Close() //nolint:errcheck
		header, records, err = readCSV(ctx, f)
		if err != nil {
			return nil, err
		}
	case FormatXLSX:
		header, records, err = readXLSX(ctx, path)
		if err != nil {
			return nil, err
		}
	}
	return Build(header, records)
}

// WriteFile writes ds to path in the format implied by its extension.
func WriteFile(path string, ds *model.Dataset) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "tabular: create output dir")
	}

	switch format {
	case FormatXLSX:
		return writeXLSX(path, ds)
	default:
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrap(err, "tabular: create csv")
		}
		if err := writeCSV(f, ds); err != nil {
			_ = f.Close()
			return err
		}
		return eris.Wrap(f.Close(), "tabular: close csv")
	}
}

// CleanedName returns the file name used for a cleaned snapshot of name.
func CleanedName(name string) string {
	return "cleaned_" + filepath.Base(name)
}
