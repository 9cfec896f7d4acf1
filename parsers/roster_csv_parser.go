// Package parsers turns the uploaded roster CSV into student records and
// writes the matching re-export. The format is seven named columns with a
// mandatory header row; embedded commas are not supported.
package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"fitnesstest-server-go/models"
)

// RequiredFields is the header vocabulary, also the re-export column order.
var RequiredFields = []string{
	"enname", "jpname", "firstname", "gender", "grade", "class", "teacher",
}

// ParseRoster reads the roster CSV. Header columns may appear in any order;
// each data row is zipped against the header and trimmed. Rows missing any
// of the seven required fields after trimming are dropped and only counted,
// so the import summary stays in step with how the CSV reader split rows.
// Empty or header-only input yields an empty slice and no error.
func ParseRoster(r io.Reader) (records []models.StudentRecord, dropped int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read roster csv: %w", err)
	}
	if len(rows) == 0 {
		return []models.StudentRecord{}, 0, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	records = make([]models.StudentRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		fields := map[string]string{}
		for i, name := range header {
			// Short rows leave trailing fields empty; the required-field
			// filter below drops them.
			if i < len(row) {
				fields[name] = strings.TrimSpace(row[i])
			} else {
				fields[name] = ""
			}
		}
		if !complete(fields) {
			dropped++
			continue
		}
		records = append(records, models.StudentRecord{
			EnName:       fields["enname"],
			JpName:       fields["jpname"],
			FirstName:    fields["firstname"],
			Gender:       models.Gender(fields["gender"]),
			Grade:        fields["grade"],
			ClassSection: fields["class"],
			TeacherName:  fields["teacher"],
			Trial1:       models.NewTrialMeasurements(),
			Trial2:       models.NewTrialMeasurements(),
		})
	}
	return records, dropped, nil
}

func complete(fields map[string]string) bool {
	for _, name := range RequiredFields {
		if fields[name] == "" {
			return false
		}
	}
	return true
}

// GroupBySection splits parsed records by class section, keeping input order
// inside each group. Slot indexes are the 1-based group positions. Section
// order follows first appearance in the input.
func GroupBySection(records []models.StudentRecord) (map[string][]models.StudentRecord, []string) {
	groups := map[string][]models.StudentRecord{}
	var order []string
	for _, rec := range records {
		if _, seen := groups[rec.ClassSection]; !seen {
			order = append(order, rec.ClassSection)
		}
		groups[rec.ClassSection] = append(groups[rec.ClassSection], rec)
	}
	return groups, order
}

// WriteRoster re-exports records in the import column order, header first.
func WriteRoster(w io.Writer, records []models.StudentRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RequiredFields); err != nil {
		return fmt.Errorf("failed to write roster header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.EnName, rec.JpName, rec.FirstName, string(rec.Gender),
			rec.Grade, rec.ClassSection, rec.TeacherName,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write roster row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
