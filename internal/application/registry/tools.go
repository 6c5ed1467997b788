package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrToolNotFound is returned when a handler calls an unregistered tool.
var ErrToolNotFound = errors.New("tool not found")

// Tool is a named callable handlers may use for domain analysis.
type Tool func(ctx context.Context, input string) (map[string]any, error)

// ToolSet is the read-only view of the tool registry passed to handlers.
type ToolSet interface {
	Call(ctx context.Context, name, input string) (map[string]any, error)
	Has(name string) bool
	Names() []string
}

// Tools is the tool registry, populated at startup.
type Tools struct {
	tools map[string]Tool
}

// NewTools creates an empty tool registry
func NewTools() *Tools {
	return &Tools{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool
func (t *Tools) Register(name string, tool Tool) {
	t.tools[name] = tool
}

// View returns the read-only view handed to handlers
func (t *Tools) View() ToolSet {
	return toolView{tools: t}
}

type toolView struct {
	tools *Tools
}

func (v toolView) Call(ctx context.Context, name, input string) (map[string]any, error) {
	tool, ok := v.tools.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return tool(ctx, input)
}

func (v toolView) Has(name string) bool {
	_, ok := v.tools.tools[name]
	return ok
}

func (v toolView) Names() []string {
	names := make([]string, 0, len(v.tools.tools))
	for name := range v.tools.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
