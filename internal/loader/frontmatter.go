// Package loader discovers sequence templates on disk.
//
// A .seq file holds one template, optionally preceded by a /*--- yaml ---*/
// frontmatter block. A markdown file holds one template per fenced code
// block tagged with the template language (default "seq").
package loader

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapseq/pkg/seq"
)

// FrontmatterConfig represents per-template settings.
// Unknown fields cause parse errors (use Meta for extensions).
type FrontmatterConfig struct {
	Name          string         `yaml:"name"`
	Description   string         `yaml:"description"`
	MarkerPolicy  string         `yaml:"marker_policy"` // first, all, reject
	MaxIterations *int64         `yaml:"max_iterations"`
	Meta          map[string]any `yaml:"meta"` // Extension point for custom fields
}

// FrontmatterResult holds the result of frontmatter extraction.
type FrontmatterResult struct {
	Config  *FrontmatterConfig
	Body    string // content after frontmatter
	HasYAML bool   // Whether frontmatter was found
}

var knownFields = map[string]bool{
	"name":           true,
	"description":    true,
	"marker_policy":  true,
	"max_iterations": true,
	"meta":           true,
}

// frontmatterPattern matches /*--- ... ---*/ blocks.
// The block is a comment, so the lexer skips it when the whole file is lexed.
var frontmatterPattern = regexp.MustCompile(`(?s)^\s*/\*---\s*\n(.*?)\s*---\*/`)

// ExtractFrontmatter extracts YAML frontmatter from template content.
func ExtractFrontmatter(content string) (*FrontmatterResult, error) {
	result := &FrontmatterResult{
		Config: &FrontmatterConfig{},
		Body:   content,
	}

	loc := frontmatterPattern.FindStringSubmatchIndex(content)
	if loc == nil {
		return result, nil
	}

	result.HasYAML = true
	result.Body = content[loc[1]:]

	config, err := parseFrontmatterYAML(content[loc[2]:loc[3]])
	if err != nil {
		return nil, err
	}
	result.Config = config
	return result, nil
}

// parseFrontmatterYAML parses YAML content with strict field validation.
func parseFrontmatterYAML(yamlContent string) (*FrontmatterConfig, error) {
	var rawMap map[string]any
	if err := yaml.Unmarshal([]byte(yamlContent), &rawMap); err != nil {
		return nil, &FrontmatterParseError{
			Message: fmt.Sprintf("invalid YAML: %v", err),
		}
	}

	for field := range rawMap {
		if !knownFields[field] {
			return nil, &UnknownFieldError{Field: field}
		}
	}

	var config FrontmatterConfig
	if err := yaml.Unmarshal([]byte(yamlContent), &config); err != nil {
		return nil, &FrontmatterParseError{
			Message: fmt.Sprintf("failed to parse frontmatter: %v", err),
		}
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// parseAttributes reads `key=value` pairs from a fenced block info string.
func parseAttributes(fields []string) (*FrontmatterConfig, error) {
	config := &FrontmatterConfig{}
	for _, f := range fields {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			return nil, &FrontmatterParseError{Message: fmt.Sprintf("attribute %q is not key=value", f)}
		}
		value = strings.Trim(value, `"'`)
		switch key {
		case "name":
			config.Name = value
		case "description":
			config.Description = value
		case "marker_policy":
			config.MarkerPolicy = value
		case "max_iterations":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, &FrontmatterParseError{Message: fmt.Sprintf("invalid max_iterations %q", value)}
			}
			config.MaxIterations = &n
		default:
			return nil, &UnknownFieldError{Field: key}
		}
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *FrontmatterConfig) validate() error {
	if c.MarkerPolicy != "" {
		if _, err := seq.ParseMarkerPolicy(c.MarkerPolicy); err != nil {
			return &FrontmatterParseError{Message: fmt.Sprintf("invalid marker_policy value: %q, must be one of: %s",
				c.MarkerPolicy, strings.Join(seq.PolicyNames(), ", "))}
		}
	}
	if c.MaxIterations != nil && *c.MaxIterations < 0 {
		return &FrontmatterParseError{Message: "max_iterations must not be negative"}
	}
	return nil
}

// merge returns c with every field set in override replaced.
func (c *FrontmatterConfig) merge(override *FrontmatterConfig) *FrontmatterConfig {
	out := *c
	if override == nil {
		return &out
	}
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.Description != "" {
		out.Description = override.Description
	}
	if override.MarkerPolicy != "" {
		out.MarkerPolicy = override.MarkerPolicy
	}
	if override.MaxIterations != nil {
		out.MaxIterations = override.MaxIterations
	}
	if override.Meta != nil {
		out.Meta = override.Meta
	}
	return &out
}

// ApplyTo overrides the engine settings in cfg with those set in c.
func (c *FrontmatterConfig) ApplyTo(cfg seq.Config) seq.Config {
	if c == nil {
		return cfg
	}
	if c.MarkerPolicy != "" {
		// validated at load time
		p, _ := seq.ParseMarkerPolicy(c.MarkerPolicy)
		cfg.Policy = p
	}
	if c.MaxIterations != nil {
		cfg.MaxIterations = *c.MaxIterations
	}
	return cfg
}

// FrontmatterParseError represents a frontmatter parsing error.
type FrontmatterParseError struct {
	File    string
	Line    int
	Message string
}

func (e *FrontmatterParseError) Error() string {
	if e.File != "" {
		if e.Line > 0 {
			return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// UnknownFieldError represents an error for unknown frontmatter fields.
type UnknownFieldError struct {
	File  string
	Field string
}

func (e *UnknownFieldError) Error() string {
	msg := fmt.Sprintf("unknown field %q in frontmatter, use \"meta\" field for custom fields", e.Field)
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, msg)
	}
	return msg
}

// withFile attaches path (and a line when known) to loader errors.
func withFile(err error, path string, line int) error {
	switch e := err.(type) {
	case *FrontmatterParseError:
		e.File = path
		if e.Line == 0 {
			e.Line = line
		}
	case *UnknownFieldError:
		e.File = path
	}
	return err
}
