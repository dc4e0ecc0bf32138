package profilestore

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

type yamlDocument struct {
	Connections []domain.ConnectionProfile `yaml:"connections"`
}

// ExportYAML writes profiles as a YAML document. Passwords are dropped unless
// includePasswords is set.
func ExportYAML(w io.Writer, profiles []domain.ConnectionProfile, includePasswords bool) error {
	doc := yamlDocument{Connections: make([]domain.ConnectionProfile, len(profiles))}
	for i, p := range profiles {
		if !includePasswords {
			p.Password = ""
		}
		doc.Connections[i] = p
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("op=profiles.export: %w", err)
	}
	return enc.Close()
}

// ImportYAML reads a document written by ExportYAML.
func ImportYAML(r io.Reader) ([]domain.ConnectionProfile, error) {
	var doc yamlDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("op=profiles.import: %w: %v", domain.ErrInvalidArgument, err)
	}
	if doc.Connections == nil {
		return []domain.ConnectionProfile{}, nil
	}
	return doc.Connections, nil
}
