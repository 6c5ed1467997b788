package codereview

import (
	"context"

	"github.com/aescanero/dagoflow/pkg/domain"
)

// Graph ids registered at startup
const (
	GraphExample = "code_review_example"
	GraphLLM     = "code_review_llm"
)

// GraphRegistrar stores graphs under a fixed id.
type GraphRegistrar interface {
	RegisterGraph(ctx context.Context, graphID string, spec *domain.GraphSpec) error
}

// ExampleGraph builds extract → complexity → detect → suggest → evaluate.
//
// While quality stays below the threshold, evaluate routes back to suggest,
// but only up to max_rounds evaluations (DefaultMaxRounds) per run. After
// that the run ends normally with a "giving up" note, so a run on poor code
// logs a few loops instead of circling until the visit ceiling. Set
// max_rounds on the evaluate node's params to allow more rounds.
func ExampleGraph() *domain.GraphSpec {
	return &domain.GraphSpec{
		Nodes: []domain.NodeSpec{
			{Name: "extract", Handler: HandlerExtractFunctions},
			{Name: "complexity", Handler: HandlerCheckComplexity},
			{Name: "detect", Handler: HandlerDetectIssues},
			{Name: "suggest", Handler: HandlerSuggestImprovements},
			{Name: "evaluate", Handler: HandlerEvaluateQuality, Params: map[string]any{
				"threshold":  DefaultThreshold,
				"max_rounds": DefaultMaxRounds,
			}},
		},
		Edges: map[string]string{
			"extract":    "complexity",
			"complexity": "detect",
			"detect":     "suggest",
			"suggest":    "evaluate",
		},
		StartNode: "extract",
	}
}

// LLMGraph is ExampleGraph followed by a model review once evaluation ends.
func LLMGraph() *domain.GraphSpec {
	g := ExampleGraph()
	g.Nodes = append(g.Nodes, domain.NodeSpec{Name: "review", Handler: HandlerLLMReview})
	g.Edges["evaluate"] = "review"
	return g
}

// RegisterGraphs registers the example graphs. The LLM variant is only
// registered when withLLM is set.
func RegisterGraphs(ctx context.Context, r GraphRegistrar, withLLM bool) error {
	if err := r.RegisterGraph(ctx, GraphExample, ExampleGraph()); err != nil {
		return err
	}
	if !withLLM {
		return nil
	}
	return r.RegisterGraph(ctx, GraphLLM, LLMGraph())
}
