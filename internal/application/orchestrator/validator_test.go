package orchestrator

import (
	"testing"

	"github.com/aescanero/dagoflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestValidator(t *testing.T) {
	tests := []struct {
		name    string
		graph   *domain.GraphSpec
		wantErr bool
	}{
		{
			name:    "nil graph",
			graph:   nil,
			wantErr: true,
		},
		{
			name:    "missing start node",
			graph:   &domain.GraphSpec{Nodes: nodes("a", "h")},
			wantErr: true,
		},
		{
			name:    "node without name",
			graph:   &domain.GraphSpec{Nodes: nodes("", "h"), StartNode: "a"},
			wantErr: true,
		},
		{
			name:    "node without handler",
			graph:   &domain.GraphSpec{Nodes: nodes("a", ""), StartNode: "a"},
			wantErr: true,
		},
		{
			name: "edge without source",
			graph: &domain.GraphSpec{
				Nodes:     nodes("a", "h"),
				Edges:     map[string]string{"": "a"},
				StartNode: "a",
			},
			wantErr: true,
		},
		{
			name:  "single node",
			graph: &domain.GraphSpec{Nodes: nodes("a", "h"), StartNode: "a"},
		},
		{
			name: "dangling references are accepted",
			graph: &domain.GraphSpec{
				Nodes:     nodes("a", "h"),
				Edges:     map[string]string{"a": "ghost", "other": "a"},
				StartNode: "a",
			},
		},
		{
			name:  "start node not declared",
			graph: &domain.GraphSpec{StartNode: "a"},
		},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.graph)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidGraph)
				return
			}
			assert.NoError(t, err)
		})
	}
}
