package feeder

import (
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// LoadJSON extracts URLs from a JSON document using a gjson path.
// The path may select a single string or an array of strings; "$" and "$." prefixes
// are accepted. An empty path selects the whole document.
func LoadJSON(path, selector string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open JSON file: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("decode JSON: %s is not valid JSON", path)
	}

	selector = normalizeJSONPath(selector)
	result := gjson.GetBytes(data, selector)
	if !result.Exists() {
		return nil, fmt.Errorf("JSON path %q not found", selector)
	}

	if !result.IsArray() {
		if result.Type != gjson.String {
			return nil, fmt.Errorf("JSON path %q selects %s, expected string or array", selector, result.Type)
		}
		return []string{strings.TrimSpace(result.String())}, nil
	}

	var urls []string
	for i, item := range result.Array() {
		if item.Type != gjson.String {
			return nil, fmt.Errorf("JSON path %q: element %d is %s, expected string", selector, i, item.Type)
		}
		if u := strings.TrimSpace(item.String()); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

func normalizeJSONPath(path string) string {
	path = strings.TrimSpace(path)
	switch {
	case path == "" || path == "$":
		return "@this"
	case strings.HasPrefix(path, "$."):
		return path[2:]
	default:
		return path
	}
}
