package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ToolDefinition describes how one named backend tool is presented while it
// runs: the indicator label shown when the tool is announced and the label
// shown once execution starts. Result routing is fixed per tool name and is
// not configurable.
type ToolDefinition struct {
	Name         string `json:"name"`
	Label        string `json:"label"`
	RunningLabel string `json:"running_label"`
}

type ToolsConfig struct {
	Tools []ToolDefinition `json:"tools"`
}

// GetToolsConfigPath returns the path of an optional tools table override.
// Empty means the built-in table is used.
func GetToolsConfigPath() string {
	return os.Getenv("TOOLS_CONFIG_PATH")
}

// DefaultToolsConfig returns the built-in presentation table for the tools
// the backend is known to invoke.
func DefaultToolsConfig() *ToolsConfig {
	return &ToolsConfig{
		Tools: []ToolDefinition{
			{Name: "analyze_resume", Label: "Reading your resume", RunningLabel: "Analyzing resume"},
			{Name: "match_jobs", Label: "Looking for matching jobs", RunningLabel: "Matching jobs"},
			{Name: "generate_skill_heatmap", Label: "Preparing skill heatmap", RunningLabel: "Generating skill heatmap"},
			{Name: "web_search", Label: "Searching the web", RunningLabel: "Searching the web"},
		},
	}
}

// LoadToolsConfig reads a tools table from a JSON file. Entries replace the
// built-in definition for the same tool name; unknown names are added as-is
// so new backend tools can be labelled without a rebuild.
func LoadToolsConfig(configPath string) (*ToolsConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tools config: %w", err)
	}

	var config ToolsConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse tools config: %w", err)
	}

	merged := DefaultToolsConfig()
	for _, def := range config.Tools {
		replaced := false
		for i, existing := range merged.Tools {
			if existing.Name == def.Name {
				merged.Tools[i] = def
				replaced = true
				break
			}
		}
		if !replaced {
			merged.Tools = append(merged.Tools, def)
		}
	}

	return merged, nil
}

// Lookup returns the definition for a tool name, or a generic fallback so
// unknown tools still get a readable indicator.
func (c *ToolsConfig) Lookup(name string) ToolDefinition {
	for _, def := range c.Tools {
		if def.Name == name {
			return def
		}
	}
	return ToolDefinition{Name: name, Label: "Working", RunningLabel: "Working"}
}
