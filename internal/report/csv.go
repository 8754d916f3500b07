package report

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/errors"
)

// WriteCSV writes a table with a header row. Identical tables produce
// identical bytes.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return errors.Wrap(err, "failed to write CSV header")
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return errors.Wrap(err, "failed to write CSV rows")
	}
	return nil
}

// WriteCSVFile writes a table to path, replacing any existing file.
func WriteCSVFile(path string, t Table) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer file.Close()

	buf := bufio.NewWriter(file)
	if err := WriteCSV(buf, t); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return errors.Wrapf(err, "failed to flush %s", path)
	}
	return file.Close()
}
