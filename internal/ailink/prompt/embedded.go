package prompt

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sync"
)

//go:embed prompts/*.md
var embeddedFS embed.FS

var (
	embeddedOnce   sync.Once
	embeddedBySlug map[string]*Prompt
	embeddedErr    error
)

// Embedded returns the built-in prompt registered under slug. The embedded
// set is parsed on first use.
func Embedded(slug string) (*Prompt, error) {
	embeddedOnce.Do(func() {
		embeddedBySlug, embeddedErr = loadEmbedded(embeddedFS)
	})
	if embeddedErr != nil {
		return nil, embeddedErr
	}
	def, ok := embeddedBySlug[slug]
	if !ok {
		return nil, fmt.Errorf("no built-in prompt %q", slug)
	}
	return def, nil
}

func loadEmbedded(fsys fs.FS) (map[string]*Prompt, error) {
	names, err := fs.Glob(fsys, "prompts/*.md")
	if err != nil {
		return nil, fmt.Errorf("list built-in prompts: %w", err)
	}
	bySlug := make(map[string]*Prompt, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read built-in prompt %s: %w", name, err)
		}
		def, err := Load(path.Base(name), data)
		if err != nil {
			return nil, err
		}
		if _, dup := bySlug[def.Config.Slug]; dup {
			return nil, fmt.Errorf("built-in prompt slug %q declared twice", def.Config.Slug)
		}
		bySlug[def.Config.Slug] = def
	}
	return bySlug, nil
}
