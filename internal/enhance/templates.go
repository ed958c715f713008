package enhance

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	errs "istanbul-explorer/pkg/errors"
)

//go:embed templates/enhancement.yaml
var templatesFS embed.FS

// TemplateSet holds the audience/style title templates, framing sentences,
// and category pools backing the local template engine. Loaded once at
// startup; an external override file replaces the embedded defaults, which
// lets editors tune copy without a rebuild.
type TemplateSet struct {
	// audience -> style -> templates with a {title} placeholder
	Titles map[string]map[string][]string `yaml:"titles"`
	// audience -> framing sentence prepended to descriptions
	Openings map[string]string `yaml:"openings"`
	// audience -> closing sentence appended to descriptions
	Closings map[string]string `yaml:"closings"`
	// category -> full default description with {title} and {location}
	DefaultDescriptions map[string]string `yaml:"default_descriptions"`
	// category -> highlight pool drawn from when items have too few
	HighlightPools map[string][]string `yaml:"highlight_pools"`
}

// LoadTemplates parses the embedded template file, or the override at
// overrideDir/enhancement.yaml when present.
func LoadTemplates(overrideDir string) (*TemplateSet, error) {
	var raw []byte
	var err error

	if overrideDir != "" {
		p := filepath.Join(overrideDir, "enhancement.yaml")
		if b, rerr := os.ReadFile(p); rerr == nil {
			raw = b
		}
	}
	if raw == nil {
		raw, err = fs.ReadFile(templatesFS, "templates/enhancement.yaml")
		if err != nil {
			return nil, errs.NewBiz("enhance.LoadTemplates", "read embedded templates", err)
		}
	}

	var set TemplateSet
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return nil, errs.NewBiz("enhance.LoadTemplates", "parse templates", err)
	}
	if len(set.Titles) == 0 {
		return nil, errs.NewBiz("enhance.LoadTemplates", "template file has no title templates", nil)
	}
	return &set, nil
}
