package graphfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aescanero/dagoflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const reviewGraph = `id: review
start_node: extract
nodes:
  - name: extract
    handler: extract_functions
  - name: evaluate
    handler: evaluate_quality
    params:
      threshold: 90
edges:
  extract: evaluate
`

type recorder struct {
	graphs map[string]*domain.GraphSpec
}

func (r *recorder) RegisterGraph(ctx context.Context, graphID string, spec *domain.GraphSpec) error {
	r.graphs[graphID] = spec
	return nil
}

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := write(t, t.TempDir(), "review.yaml", reviewGraph)

	f, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "review", f.ID)
	assert.Equal(t, "extract", f.StartNode)
	require.Len(t, f.Nodes, 2)
	assert.Equal(t, "evaluate_quality", f.Nodes[1].Handler)
	assert.Equal(t, 90, f.Nodes[1].Params["threshold"])
	assert.Equal(t, map[string]string{"extract": "evaluate"}, f.Edges)
}

func TestLoadFileRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	tests := map[string]string{
		"unknown.yaml":    "id: x\nstart_node: a\nretries: 3\n",
		"missing_id.yaml": "start_node: a\n",
		"multi.yaml":      "id: x\nstart_node: a\n---\nid: y\nstart_node: b\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(write(t, dir, name, content))
			assert.Error(t, err)
		})
	}

	_, err := LoadFile(filepath.Join(dir, "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRegisterAllWalksNestedDirectories(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "review.yaml", reviewGraph)
	write(t, dir, "nested/deeper/other.yaml", "id: other\nstart_node: a\nnodes:\n  - name: a\n    handler: noop\n")
	write(t, dir, "nested/ignored.txt", "not a graph")

	r := &recorder{graphs: map[string]*domain.GraphSpec{}}
	n, err := RegisterAll(context.Background(), r, filepath.Join(dir, "**", "*.yaml"), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Contains(t, r.graphs, "review")
	assert.Contains(t, r.graphs, "other")
	assert.Equal(t, "a", r.graphs["other"].StartNode)
}

func TestRegisterAllEmptyPattern(t *testing.T) {
	r := &recorder{graphs: map[string]*domain.GraphSpec{}}
	n, err := RegisterAll(context.Background(), r, "", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Zero(t, n)
}
