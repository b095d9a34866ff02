// Package sheet reads the expert workbook.
package sheet

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Column headers of the "Import Ready" sheet.
const (
	ColFirstName             = "First Name"
	ColLastName              = "Last Name"
	ColLocation              = "locations"
	ColCompany               = "company_name"
	ColRole                  = "job_type"
	ColTags                  = "tag"
	ColGeographicalExpertise = "geographical_expertise"
	ColCountryExpertise      = "country_expertise"
	ColRate                  = "Rate"
	ColBio                   = "post_content"
	ColEducation             = "educational_requirement"
	ColProfileImage          = "profileImage"
	ColProfileImageURL       = "Profile Image URL"

	// Optional columns; synthesized when absent or blank.
	ColEmail          = "Email"
	ColPhone          = "Phone"
	ColLinkedIn       = "LinkedIn"
	ColAvailability   = "availability"
	ColCertifications = "certifications"
	ColLanguages      = "languages"
)

// Row is one data line. Number is the spreadsheet line, so the first data
// row is 2.
type Row struct {
	Number int
	cells  map[string]string
}

// NewRow builds a Row from header -> value pairs.
func NewRow(number int, cells map[string]string) Row {
	return Row{Number: number, cells: cells}
}

// Get returns the trimmed cell under header, or "".
func (r Row) Get(header string) string {
	return strings.TrimSpace(r.cells[header])
}

// Raw returns the cell without trimming.
func (r Row) Raw(header string) string {
	return r.cells[header]
}

// FirstOf returns the first non-blank cell among headers.
func (r Row) FirstOf(headers ...string) string {
	for _, h := range headers {
		if v := r.Get(h); v != "" {
			return v
		}
	}
	return ""
}

// Sheet is a parsed worksheet.
type Sheet struct {
	Name    string
	Headers []string
	Rows    []Row
}

// Open reads sheetName from the workbook at path.
func Open(path, sheetName string) (*Sheet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer file.Close()
	return Read(file, sheetName)
}

// Read parses a workbook from r.
func Read(r io.Reader, sheetName string) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()
	return read(f, sheetName)
}

func read(f *excelize.File, sheetName string) (*Sheet, error) {
	idx, err := f.GetSheetIndex(sheetName)
	if err != nil {
		return nil, fmt.Errorf("looking up sheet %q: %w", sheetName, err)
	}
	if idx < 0 {
		return nil, fmt.Errorf("sheet %q not found (have %s)", sheetName, strings.Join(f.GetSheetList(), ", "))
	}

	lines, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheetName, err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheetName)
	}

	s := &Sheet{Name: sheetName}
	for _, h := range lines[0] {
		s.Headers = append(s.Headers, strings.TrimSpace(h))
	}

	for i, line := range lines[1:] {
		cells := make(map[string]string, len(s.Headers))
		blank := true
		for col, h := range s.Headers {
			if h == "" || col >= len(line) {
				continue
			}
			if _, dup := cells[h]; dup {
				continue
			}
			cells[h] = line[col]
			if strings.TrimSpace(line[col]) != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		s.Rows = append(s.Rows, Row{Number: i + 2, cells: cells})
	}
	return s, nil
}

// Missing returns the expected headers the sheet lacks.
func (s *Sheet) Missing(expected ...string) []string {
	have := make(map[string]bool, len(s.Headers))
	for _, h := range s.Headers {
		have[h] = true
	}
	var missing []string
	for _, e := range expected {
		if !have[e] {
			missing = append(missing, e)
		}
	}
	return missing
}

// Expected lists the columns the importer reads from every row.
func Expected() []string {
	return []string{
		ColFirstName, ColLastName, ColLocation, ColCompany, ColRole, ColTags,
		ColGeographicalExpertise, ColCountryExpertise, ColRate, ColBio, ColEducation,
	}
}
