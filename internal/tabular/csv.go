package tabular

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sells-group/datacleaner/internal/model"
)

func readCSV(ctx context.Context, r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(stripBOM(r))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var header []string
	var records [][]string
	for {
		if ctx.Err() != nil {
			return nil, nil, eris.Wrap(ctx.Err(), "csv: context cancelled")
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrap(err, "csv: read row")
		}
		if header == nil {
			header = record
			continue
		}
		records = append(records, record)
	}
	if header == nil {
		return nil, nil, eris.New("csv: file has no header row")
	}
	return header, records, nil
}

func writeCSV(w io.Writer, ds *model.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Columns); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	record := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for j, v := range row {
			record[j] = v.String()
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrap(err, "csv: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "csv: flush")
}

// stripBOM drops a leading UTF-8 byte order mark, which spreadsheet exports
// commonly prepend to the header.
func stripBOM(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
}
