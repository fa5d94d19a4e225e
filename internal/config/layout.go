package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScreenLayout is one screen of a layout file.
type ScreenLayout struct {
	Name string         `yaml:"name"`
	Rows map[string]int `yaml:"rows"`
}

// layoutFile is the on-disk shape:
//
//	screens:
//	  - name: inox
//	    rows:
//	      A: 10
//	      B: 15
type layoutFile struct {
	Screens []ScreenLayout `yaml:"screens"`
}

// LoadScreenLayouts reads the screens declared in a YAML layout file.
// Unknown keys are rejected so that typos do not silently drop rows.
func LoadScreenLayouts(path string) ([]ScreenLayout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open layout file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var lf layoutFile
	if err := dec.Decode(&lf); err != nil {
		return nil, fmt.Errorf("parse layout file %s: %w", path, err)
	}
	if len(lf.Screens) == 0 {
		return nil, fmt.Errorf("layout file %s declares no screens", path)
	}
	for i, s := range lf.Screens {
		if s.Name == "" {
			return nil, fmt.Errorf("layout file %s: screen #%d has no name", path, i+1)
		}
	}
	return lf.Screens, nil
}
