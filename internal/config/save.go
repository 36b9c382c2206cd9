package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SaveFlags updates the flags section in the config file.
// This preserves comments and formatting in other sections by using yaml.Node.
func SaveFlags(configPath string, flags map[string]bool) error {
	return saveSection(configPath, "flags", buildFlagsNode(flags))
}

// SaveTracing updates the tracing section in the config file, preserving
// the rest of the document.
func SaveTracing(configPath string, tracing TracingConfig) error {
	return saveSection(configPath, "tracing", buildTracingNode(tracing))
}

// saveSection replaces (or appends) one top-level key in the config file
// while keeping every other section's comments and formatting intact.
func saveSection(configPath, key string, value *yaml.Node) error {
	// Read existing file content
	data, err := os.ReadFile(configPath) //nolint:gosec // G304: user-chosen config path
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	// Parse into yaml.Node to preserve comments
	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	if doc.Kind == 0 {
		// Empty or new file - create document structure
		doc = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{
				{
					Kind: yaml.MappingNode,
					Content: []*yaml.Node{
						{Kind: yaml.ScalarNode, Value: key},
						value,
					},
				},
			},
		}
	} else if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root := doc.Content[0]
		if root.Kind == yaml.MappingNode {
			// Find and replace the key, or append it
			found := false
			for i := 0; i < len(root.Content)-1; i += 2 {
				if root.Content[i].Value == key {
					root.Content[i+1] = value
					found = true
					break
				}
			}
			if !found {
				root.Content = append(root.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Value: key},
					value,
				)
			}
		}
	}

	// Marshal back to YAML
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	// Write atomically (write to temp, then rename)
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".plugboard.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(buf.Bytes()); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// buildFlagsNode creates a yaml.Node representing the flags mapping,
// with keys sorted for stable output.
func buildFlagsNode(flags map[string]bool) *yaml.Node {
	node := &yaml.Node{
		Kind:    yaml.MappingNode,
		Content: make([]*yaml.Node, 0, len(flags)*2),
	}

	keys := make([]string, 0, len(flags))
	for k := range flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatBool(flags[k]), Tag: "!!bool"},
		)
	}

	return node
}

// buildTracingNode creates a yaml.Node representing the tracing section.
func buildTracingNode(tracing TracingConfig) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}

	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: "enabled"},
		&yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatBool(tracing.Enabled), Tag: "!!bool"},
	)

	if tracing.Exporter != "" {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "exporter"},
			&yaml.Node{Kind: yaml.ScalarNode, Value: tracing.Exporter},
		)
	}
	if tracing.OTLPEndpoint != "" {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "otlp_endpoint"},
			&yaml.Node{Kind: yaml.ScalarNode, Value: tracing.OTLPEndpoint},
		)
	}

	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: "sample_rate"},
		&yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatFloat(tracing.SampleRate, 'f', -1, 64), Tag: "!!float"},
	)

	return node
}
