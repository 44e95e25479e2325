// Package feeder loads target URL lists from files.
package feeder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/netfilter/conn/internal/har"
)

// Format names a URL file layout.
type Format string

const (
	FormatAuto  Format = ""
	FormatLines Format = "lines"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatHAR   Format = "har"
)

// DefaultCSVColumn is the CSV header used when no column is configured.
const DefaultCSVColumn = "url"

// Options tune how a URL file is interpreted.
type Options struct {
	Format    Format
	CSVColumn string // header of the CSV column holding URLs
	JSONPath  string // gjson path selecting URLs in a JSON document
}

// Load reads the URLs contained in the file at path, in file order.
// An empty result is not an error here; callers decide whether an empty list is acceptable.
func Load(path string, opts Options) ([]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("url file path is required")
	}

	format := opts.Format
	if format == FormatAuto {
		format = DetectFormat(path)
	}

	switch format {
	case FormatLines:
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open url file: %w", err)
		}
		defer file.Close()
		return ReadLines(file)
	case FormatCSV:
		return LoadCSV(path, opts.CSVColumn)
	case FormatJSON:
		return LoadJSON(path, opts.JSONPath)
	case FormatYAML:
		return LoadYAML(path)
	case FormatHAR:
		archive, err := har.ParseFile(path)
		if err != nil {
			return nil, err
		}
		return har.URLs(archive, har.DefaultOptions())
	default:
		return nil, fmt.Errorf("unsupported url file format %q", format)
	}
}

// DetectFormat picks a format from the file extension, defaulting to one URL per line.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".har":
		return FormatHAR
	default:
		return FormatLines
	}
}

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAuto, FormatLines, FormatCSV, FormatJSON, FormatYAML, FormatHAR:
		return f, nil
	default:
		return "", fmt.Errorf("format must be one of lines, csv, json, yaml, har; got %q", s)
	}
}
