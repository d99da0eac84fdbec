package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// SaveHosts updates the hosts section in the config file.
// This preserves comments and formatting in other sections by using yaml.Node.
func SaveHosts(configPath string, hosts []HostConfig) error {
	hostsNode := buildHostsNode(hosts)
	return saveSection(configPath, "hosts", hostsNode)
}

// SaveDefaultTarget updates the default_target scalar in the config file,
// preserving comments and formatting in other sections.
func SaveDefaultTarget(configPath string, target string) error {
	node := &yaml.Node{Kind: yaml.ScalarNode, Value: target}
	return saveSection(configPath, "default_target", node)
}

// AddHost appends a new host entry to the config and saves it.
// An existing entry with the same name is replaced.
func AddHost(configPath string, newHost HostConfig, existingHosts []HostConfig) error {
	updated := make([]HostConfig, 0, len(existingHosts)+1)
	replaced := false
	for _, host := range existingHosts {
		if host.Name == newHost.Name {
			updated = append(updated, newHost)
			replaced = true
			continue
		}
		updated = append(updated, host)
	}
	if !replaced {
		updated = append(updated, newHost)
	}
	return SaveHosts(configPath, updated)
}

// RemoveHost removes the named host entry and saves.
// Returns an error if the host is not present.
func RemoveHost(configPath string, name string, allHosts []HostConfig) error {
	updated := make([]HostConfig, 0, len(allHosts))
	for _, host := range allHosts {
		if host.Name != name {
			updated = append(updated, host)
		}
	}
	if len(updated) == len(allHosts) {
		return fmt.Errorf("host %q not found", name)
	}
	return SaveHosts(configPath, updated)
}

// saveSection replaces (or appends) a single top-level key in the config
// file while keeping every other node, comments included, untouched.
func saveSection(configPath, key string, value *yaml.Node) error {
	data, err := os.ReadFile(configPath)
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

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	return writeAtomic(configPath, buf.Bytes())
}

// writeAtomic writes to a temp file in the target directory, then renames.
func writeAtomic(configPath string, data []byte) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".crossver.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
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

// buildHostsNode creates a yaml.Node representing the hosts array.
func buildHostsNode(hosts []HostConfig) *yaml.Node {
	node := &yaml.Node{
		Kind:    yaml.SequenceNode,
		Content: make([]*yaml.Node, 0, len(hosts)),
	}

	for _, host := range hosts {
		hostNode := &yaml.Node{
			Kind: yaml.MappingNode,
			Content: []*yaml.Node{
				{Kind: yaml.ScalarNode, Value: "name"},
				{Kind: yaml.ScalarNode, Value: host.Name},
			},
		}

		if len(host.Versions) > 0 {
			versionsNode := &yaml.Node{
				Kind:    yaml.MappingNode,
				Content: make([]*yaml.Node, 0, len(host.Versions)*2),
			}
			// Deterministic output regardless of map iteration order
			names := make([]string, 0, len(host.Versions))
			for name := range host.Versions {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				versionsNode.Content = append(versionsNode.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Value: name},
					&yaml.Node{Kind: yaml.ScalarNode, Value: host.Versions[name]},
				)
			}
			hostNode.Content = append(hostNode.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: "versions"},
				versionsNode,
			)
		}

		node.Content = append(node.Content, hostNode)
	}

	return node
}
