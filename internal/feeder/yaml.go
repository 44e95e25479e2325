package feeder

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads URLs from a YAML document that is either a sequence of strings
// or a mapping with a "urls" sequence.
func LoadYAML(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open YAML file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode YAML: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	var list []string
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&list); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	case yaml.MappingNode:
		var wrapped struct {
			URLs []string `yaml:"urls"`
		}
		if err := root.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
		list = wrapped.URLs
	default:
		return nil, fmt.Errorf("decode YAML: expected a list of URLs or a mapping with a urls key")
	}

	urls := make([]string, 0, len(list))
	for _, u := range list {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}
