package export

import (
	"fmt"
	"io"
	"strings"

	"facemark/internal/ledger"
)

// header matches the columns the records page has always exported.
var header = []string{"Roll Number", "Name", "Department", "Date", "Time", "Status", "Method"}

// CSV writes one comma-joined row per record after a header row. Fields
// are not escaped; a comma inside a name breaks the row. Known
// limitation carried over from the original export.
func CSV(w io.Writer, records []ledger.Record) error {
	if _, err := fmt.Fprintln(w, strings.Join(header, ",")); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.RollNumber,
			r.StudentName,
			r.Department,
			r.Date.Format("2006-01-02"),
			r.Time,
			string(r.Status),
			string(r.VerificationMethod),
		}
		if _, err := fmt.Fprintln(w, strings.Join(row, ",")); err != nil {
			return err
		}
	}
	return nil
}

// Filename names the download for a given day's export.
func Filename(date string) string {
	return "attendance-" + date + ".csv"
}
