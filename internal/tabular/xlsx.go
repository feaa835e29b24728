package tabular

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/datacleaner/internal/model"
)

// readXLSX reads the first sheet. The first row is the header.
func readXLSX(ctx context.Context, path string) ([]string, [][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, nil, eris.New("xlsx: workbook has no sheets")
	}
	sheet := f.Sheets[0]

	var header []string
	var records [][]string
	for _, row := range sheet.Rows {
		if ctx.Err() != nil {
			return nil, nil, eris.Wrap(ctx.Err(), "xlsx: context cancelled")
		}
		if row == nil {
			continue
		}
		cells := rowToStrings(row)
		if header == nil {
			header = cells
			continue
		}
		records = append(records, cells)
	}
	if header == nil {
		return nil, nil, eris.New("xlsx: sheet has no header row")
	}
	return header, records, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func writeXLSX(path string, ds *model.Dataset) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range ds.Columns {
		header.AddCell().SetString(c)
	}
	for _, r := range ds.Rows {
		row := sheet.AddRow()
		for _, v := range r {
			cell := row.AddCell()
			switch v.Kind() {
			case model.KindNumber:
				n, _ := v.Float()
				cell.SetFloat(n)
			case model.KindBool, model.KindString:
				cell.SetString(v.String())
			}
		}
	}
	return eris.Wrap(f.Save(path), "xlsx: save")
}
