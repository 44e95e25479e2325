package feeder

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// LoadCSV reads URLs from the named column of a CSV file.
// The first row is treated as the header containing field names.
func LoadCSV(path, column string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	column = strings.TrimSpace(column)
	if column == "" {
		column = DefaultCSVColumn
	}

	header := rows[0]
	index := -1
	for i, field := range header {
		if strings.EqualFold(strings.TrimSpace(field), column) {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, fmt.Errorf("CSV header has no %q column", column)
	}

	urls := make([]string, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d has %d fields, expected %d", i+2, len(row), len(header))
		}
		if u := strings.TrimSpace(row[index]); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}
