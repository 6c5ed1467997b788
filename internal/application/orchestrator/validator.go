package orchestrator

import (
	"fmt"

	"github.com/aescanero/dagoflow/pkg/domain"
)

// Validator checks graph definitions at creation.
//
// Only the shape of the definition is checked. References from start_node
// and edges to undeclared nodes are accepted here and surface at run time.
type Validator struct{}

// NewValidator creates a new graph validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates a graph definition
func (v *Validator) Validate(g *domain.GraphSpec) error {
	if g == nil {
		return fmt.Errorf("%w: graph is nil", domain.ErrInvalidGraph)
	}

	if g.StartNode == "" {
		return fmt.Errorf("%w: start_node is required", domain.ErrInvalidGraph)
	}

	for i, node := range g.Nodes {
		if err := v.validateNode(node); err != nil {
			return fmt.Errorf("%w: node %d: %v", domain.ErrInvalidGraph, i, err)
		}
	}

	for from := range g.Edges {
		if from == "" {
			return fmt.Errorf("%w: edge with empty source", domain.ErrInvalidGraph)
		}
	}

	return nil
}

// validateNode validates a single node
func (v *Validator) validateNode(node domain.NodeSpec) error {
	if node.Name == "" {
		return fmt.Errorf("name is required")
	}
	if node.Handler == "" {
		return fmt.Errorf("handler is required")
	}
	return nil
}
