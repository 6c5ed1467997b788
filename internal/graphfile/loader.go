// Package graphfile loads graph definitions from YAML files so they can be
// registered at startup.
package graphfile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/aescanero/dagoflow/pkg/domain"
	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// File is a graph definition on disk.
type File struct {
	ID        string            `yaml:"id"`
	StartNode string            `yaml:"start_node"`
	Nodes     []domain.NodeSpec `yaml:"nodes"`
	Edges     map[string]string `yaml:"edges"`
}

// Spec returns the graph definition of the file.
func (f File) Spec() *domain.GraphSpec {
	return &domain.GraphSpec{
		Nodes:     f.Nodes,
		Edges:     f.Edges,
		StartNode: f.StartNode,
	}
}

// Registrar stores graphs under a fixed id.
type Registrar interface {
	RegisterGraph(ctx context.Context, graphID string, spec *domain.GraphSpec) error
}

// Load expands pattern (doublestar syntax, e.g. "graphs/**/*.yaml") and
// decodes every matching file. Files are returned in path order.
func Load(pattern string) ([]File, error) {
	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid graph file pattern %q: %w", pattern, err)
	}
	sort.Strings(paths)

	files := make([]File, 0, len(paths))
	for _, path := range paths {
		f, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// LoadFile decodes a single graph file. Unknown fields are rejected.
func LoadFile(path string) (File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read graph file %s: %w", path, err)
	}

	var f File
	if err := decodeStrict(b, &f); err != nil {
		return File{}, fmt.Errorf("decode graph file %s: %w", path, err)
	}
	if f.ID == "" {
		return File{}, fmt.Errorf("graph file %s: id is required", path)
	}
	return f, nil
}

// RegisterAll loads the files matched by pattern and registers each graph.
// An empty pattern registers nothing.
func RegisterAll(ctx context.Context, r Registrar, pattern string, logger *zap.Logger) (int, error) {
	if pattern == "" {
		return 0, nil
	}

	files, err := Load(pattern)
	if err != nil {
		return 0, err
	}

	for i := range files {
		if err := r.RegisterGraph(ctx, files[i].ID, files[i].Spec()); err != nil {
			return i, fmt.Errorf("register graph %s: %w", files[i].ID, err)
		}
		logger.Info("graph file loaded", zap.String("graph_id", files[i].ID))
	}
	return len(files), nil
}

func decodeStrict(b []byte, f *File) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil {
		return err
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return fmt.Errorf("yaml: multiple documents are not allowed")
		}
		return err
	}
	return nil
}
