package problem

import (
	_ "embed"
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/codeduel/internal/models"
)

//go:embed problems.yaml
var defaultProblems []byte

// Catalog is the immutable set of contest problems for the process. One
// problem is drawn at random per session.
type Catalog struct {
	problems []models.Problem
}

type catalogFile struct {
	Problems []models.Problem `yaml:"problems"`
}

// Load reads a catalog from the given YAML file, or from the embedded default
// set when the path is empty.
func Load(path string) (*Catalog, error) {
	data := defaultProblems
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read problem catalog: %w", err)
		}
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse problem catalog: %w", err)
	}
	if len(file.Problems) == 0 {
		return nil, fmt.Errorf("problem catalog is empty")
	}
	for i, p := range file.Problems {
		if p.ID == "" || p.Title == "" {
			return nil, fmt.Errorf("problem %d is missing an id or title", i)
		}
	}

	return &Catalog{problems: file.Problems}, nil
}

// Random returns a copy of a randomly chosen problem.
func (c *Catalog) Random() models.Problem {
	return c.problems[rand.Intn(len(c.problems))].Copy()
}

// Len reports the number of problems in the catalog.
func (c *Catalog) Len() int {
	return len(c.problems)
}
