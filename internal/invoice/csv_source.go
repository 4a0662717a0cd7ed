package invoice

import (
	"encoding/csv"
	"os"
	"strings"

	"guardian/internal/logging"
)

// Source supplies raw transaction records. Transient I/O problems are the
// source's responsibility: implementations surface them as an empty slice
// plus a logged warning, never as an error to the audit pipeline.
type Source interface {
	Load() []map[string]any
}

// CSVSource loads transactions from the first existing CSV file in a
// candidate path list. Exported drops are messy: UTF-8 BOMs, blank lines,
// and rows double-quoted as a whole line all occur in the wild.
type CSVSource struct {
	Paths []string
}

// NewCSVSource creates a CSV transaction source over candidate paths.
func NewCSVSource(paths []string) *CSVSource {
	return &CSVSource{Paths: paths}
}

// Load reads and parses the first usable CSV file. Header keys are
// normalized (trimmed, lowercased, quotes and BOM stripped) so that
// Normalize's candidate keys match regardless of export formatting.
func (s *CSVSource) Load() []map[string]any {
	for _, path := range s.Paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				logging.Get(logging.CategoryIngest).Warn("could not read %s: %v", path, err)
			}
			continue
		}

		records, err := parseCSV(string(data))
		if err != nil {
			logging.Get(logging.CategoryIngest).Warn("could not parse %s: %v", path, err)
			continue
		}

		logging.Ingest("Loaded %d transactions from %s", len(records), path)
		return records
	}

	logging.Get(logging.CategoryIngest).Warn("no transaction CSV found in %v", s.Paths)
	return nil
}

// parseCSV cleans and parses raw CSV content into loosely-keyed records.
func parseCSV(content string) ([]map[string]any, error) {
	content = strings.TrimPrefix(content, "\ufeff")

	var cleaned []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Some exports wrap entire rows in quotes and double the inner ones.
		if strings.HasPrefix(line, `"`) && strings.HasSuffix(line, `"`) && strings.Contains(line, ",") {
			inner := line[1 : len(line)-1]
			if strings.Contains(inner, `""`) {
				line = strings.ReplaceAll(inner, `""`, `"`)
			}
		}
		cleaned = append(cleaned, line)
	}
	if len(cleaned) == 0 {
		return nil, nil
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(cleaned, "\n")))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = normalizeHeader(h)
	}

	records := make([]map[string]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]any, len(header))
		for i, cell := range row {
			if i >= len(header) || header[i] == "" {
				continue
			}
			record[header[i]] = cell
		}
		if len(record) > 0 {
			records = append(records, record)
		}
	}
	return records, nil
}

// normalizeHeader canonicalizes a CSV header cell into a lookup key.
func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\ufeff", "")
	h = strings.ReplaceAll(h, `"`, "")
	return strings.ToLower(strings.TrimSpace(h))
}
