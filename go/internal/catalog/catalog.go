// Package catalog loads the static question catalog that seeds the game on
// first run.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/drewhoward/gamenight/go/internal/models"
)

type catalogFile struct {
	Questions []models.Question `yaml:"questions"`
}

// Load reads and validates the YAML catalog file.
func Load(path string) ([]models.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if len(file.Questions) == 0 {
		return nil, fmt.Errorf("catalog file %s contains no questions", path)
	}

	seen := make(map[string]bool, len(file.Questions))
	for _, q := range file.Questions {
		if q.ID == "" {
			return nil, fmt.Errorf("catalog question with empty id")
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		seen[q.ID] = true
		if q.Worth <= 0 {
			return nil, fmt.Errorf("question %q must be worth a positive amount", q.ID)
		}
	}
	return file.Questions, nil
}
