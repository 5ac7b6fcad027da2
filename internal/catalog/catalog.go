// Package catalog loads the question bank from YAML files.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/examforge/internal/model"
)

// Load reads a catalog from the provided file path.
func Load(path string) (model.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Catalog{}, err
	}
	return Parse(data)
}

// Parse decodes a YAML catalog and fills defaults.
func Parse(data []byte) (model.Catalog, error) {
	var cat model.Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cat); err != nil {
		if errors.Is(err, io.EOF) {
			return model.Catalog{}, fmt.Errorf("catalog is empty")
		}
		return model.Catalog{}, fmt.Errorf("failed to decode catalog: %w", err)
	}
	normalize(&cat)
	if len(cat.Questions) == 0 {
		return model.Catalog{}, fmt.Errorf("catalog has no questions")
	}
	return cat, nil
}

func normalize(cat *model.Catalog) {
	for i := range cat.Questions {
		q := &cat.Questions[i]
		q.Status = strings.ToLower(strings.TrimSpace(q.Status))
		if q.Status == "" {
			q.Status = model.StatusActive
		}
		q.Category = strings.ToLower(strings.TrimSpace(q.Category))
		if q.Category == "" {
			q.Category = model.CategoryAll
		}
		q.Difficulty = model.Difficulty(strings.ToLower(strings.TrimSpace(string(q.Difficulty))))
		if q.Difficulty == "" {
			q.Difficulty = model.DifficultyMedium
		}
	}
}

// SubjectName returns the display name of a subject id, or the id itself.
func SubjectName(subjects []model.Subject, id string) string {
	for _, s := range subjects {
		if s.ID == id {
			return s.Name
		}
	}
	return id
}
