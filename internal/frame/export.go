package frame

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ExportFilename is the download name of an exported table.
const ExportFilename = "cleaned_data.csv"

// WriteCSV writes the header and every row. Cells keep their source text;
// nulls are written as empty fields.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < t.NumRows(); i++ {
		if err := cw.Write(t.Row(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
