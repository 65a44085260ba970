package source

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed datasets/*.yaml
var datasetFS embed.FS

func loadDataset(name string, out any) error {
	raw, err := datasetFS.ReadFile("datasets/" + name)
	if err != nil {
		return fmt.Errorf("read dataset %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse dataset %s: %w", name, err)
	}
	return nil
}
