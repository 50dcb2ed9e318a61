package eval

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Case is one labelled question: the pages a good retrieval should surface.
type Case struct {
	Question string `yaml:"question"`
	Pages    []int  `yaml:"pages"`
}

// GoldenSet is a list of labelled questions for one indexed paper.
type GoldenSet struct {
	PaperID string `yaml:"paper_id"`
	TopK    int    `yaml:"top_k"`
	Cases   []Case `yaml:"cases"`
}

// LoadGoldenSet reads a golden set from a YAML file.
func LoadGoldenSet(path string) (*GoldenSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var gs GoldenSet
	if err := yaml.Unmarshal(data, &gs); err != nil {
		return nil, fmt.Errorf("parse golden set: %w", err)
	}
	if gs.PaperID == "" {
		return nil, fmt.Errorf("golden set %s: paper_id is required", path)
	}
	if len(gs.Cases) == 0 {
		return nil, fmt.Errorf("golden set %s: no cases", path)
	}
	for i, c := range gs.Cases {
		if c.Question == "" || len(c.Pages) == 0 {
			return nil, fmt.Errorf("golden set %s: case %d needs a question and pages", path, i+1)
		}
	}
	return &gs, nil
}
