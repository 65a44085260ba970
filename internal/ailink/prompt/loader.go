package prompt

import (
	"bufio"
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const promptSchemaURL = "verifi://schemas/prompt.schema.json"

//go:embed prompt.schema.json
var promptSchemaJSON string

var (
	promptSchemaOnce sync.Once
	promptSchema     *jsonschema.Schema
	promptSchemaErr  error
)

// Load parses and validates a prompt definition from YAML bytes.
func Load(source string, data []byte) (*Prompt, error) {
	config, body, err := parseYAMLWithFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", source, err)
	}

	if strings.TrimSpace(config.SystemTemplate) == "" {
		config.SystemTemplate = strings.TrimSpace(body)
	}

	if strings.TrimSpace(config.SystemTemplate) == "" {
		return nil, fmt.Errorf("prompt %s missing system_template", source)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("validate prompt %s: %w", source, err)
	}

	return &Prompt{Config: config, Source: source}, nil
}

// LoadFile reads a prompt definition (markdown with YAML frontmatter) from path.
func LoadFile(path string) (*Prompt, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read prompt %s: %w", path, err)
	}
	return Load(path, data)
}

func parseYAMLWithFrontmatter(data []byte) (Config, string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Config{}, "", fmt.Errorf("empty prompt")
	}

	lines := bufio.NewScanner(bytes.NewReader(trimmed))
	lines.Split(bufio.ScanLines)

	var (
		frontmatter []string
		body        []string
		inFront     bool
		headerSeen  bool
	)

	for lines.Scan() {
		line := lines.Text()
		switch {
		case !headerSeen && strings.TrimSpace(line) == "---":
			headerSeen = true
			inFront = true
		case headerSeen && inFront && strings.TrimSpace(line) == "---":
			inFront = false
		default:
			if inFront {
				frontmatter = append(frontmatter, line)
			} else {
				body = append(body, line)
			}
		}
	}
	if err := lines.Err(); err != nil {
		return Config{}, "", err
	}

	var cfg Config
	if headerSeen {
		if err := yaml.Unmarshal([]byte(strings.Join(frontmatter, "\n")), &cfg); err != nil {
			return Config{}, "", fmt.Errorf("invalid frontmatter: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(trimmed, &cfg); err != nil {
			return Config{}, "", fmt.Errorf("invalid yaml: %w", err)
		}
	}

	return cfg, strings.Join(body, "\n"), nil
}

func validateConfig(cfg Config) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	schema, err := compiledPromptSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if len(cfg.ResponseSchema) > 0 {
		if _, err := CompileResponseSchema(cfg.Slug, cfg.ResponseSchema); err != nil {
			return err
		}
	}
	return nil
}

func compiledPromptSchema() (*jsonschema.Schema, error) {
	promptSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(promptSchemaURL, strings.NewReader(promptSchemaJSON)); err != nil {
			promptSchemaErr = fmt.Errorf("load prompt schema: %w", err)
			return
		}
		promptSchema, promptSchemaErr = compiler.Compile(promptSchemaURL)
	})
	return promptSchema, promptSchemaErr
}

// CompileResponseSchema compiles a prompt's response_schema for validating
// model output.
func CompileResponseSchema(slug string, schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode response schema: %w", err)
	}
	url := "verifi://prompts/" + slug + "/response.schema.json"
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("load response schema: %w", err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile response schema: %w", err)
	}
	return compiled, nil
}
