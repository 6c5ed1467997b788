package codereview

import (
	"context"
	"fmt"
	"strings"

	"github.com/aescanero/dagoflow/internal/application/registry"
	"github.com/aescanero/dagoflow/pkg/domain"
	"github.com/aescanero/dagoflow/pkg/ports"
)

// Handler names
const (
	HandlerExtractFunctions    = "extract_functions"
	HandlerCheckComplexity     = "check_complexity"
	HandlerDetectIssues        = "detect_issues"
	HandlerSuggestImprovements = "suggest_improvements"
	HandlerEvaluateQuality     = "evaluate_quality"
	HandlerLLMReview           = "llm_review"
)

// Defaults for evaluate_quality params
const (
	DefaultThreshold = 80
	DefaultMaxRounds = 3
)

// Register adds the code review tools and handlers. llm may be nil, in
// which case llm_review nodes record a skip note.
func Register(handlers *registry.Registry, tools *registry.Tools, llm ports.LLMClient) {
	RegisterTools(tools, llm)

	handlers.RegisterBlocking(HandlerExtractFunctions, extractFunctions)
	handlers.RegisterBlocking(HandlerCheckComplexity, checkComplexity)
	handlers.RegisterBlocking(HandlerDetectIssues, detectIssues)
	handlers.RegisterBlocking(HandlerSuggestImprovements, suggestImprovements)
	handlers.RegisterBlocking(HandlerEvaluateQuality, evaluateQuality)
	handlers.RegisterSuspending(HandlerLLMReview, llmReview)
}

// extractFunctions treats the whole source as a single function
func extractFunctions(ctx context.Context, state domain.State, params map[string]any, tools registry.ToolSet) (*domain.Result, error) {
	code, _ := state["code"].(string)
	state["functions"] = []map[string]any{{"name": "main", "code": code}}

	return &domain.Result{
		StateDelta: map[string]any{"extracted": true},
		Note:       "extracted 1 function",
	}, nil
}

func checkComplexity(ctx context.Context, state domain.State, params map[string]any, tools registry.ToolSet) (*domain.Result, error) {
	total := 0
	for _, fn := range functions(state["functions"]) {
		res, err := tools.Call(ctx, ToolCalcComplexity, codeOf(fn))
		if err != nil {
			return nil, err
		}
		total += intValue(res["complexity"], 0)
	}
	state["complexity_score"] = total

	return &domain.Result{Note: fmt.Sprintf("complexity %d", total)}, nil
}

func detectIssues(ctx context.Context, state domain.State, params map[string]any, tools registry.ToolSet) (*domain.Result, error) {
	total := 0
	for _, fn := range functions(state["functions"]) {
		res, err := tools.Call(ctx, ToolDetectSmells, codeOf(fn))
		if err != nil {
			return nil, err
		}
		total += intValue(res["issues"], 0)
	}
	state["issues"] = total

	return &domain.Result{Note: fmt.Sprintf("issues %d", total)}, nil
}

func suggestImprovements(ctx context.Context, state domain.State, params map[string]any, tools registry.ToolSet) (*domain.Result, error) {
	suggestions := []string{}
	if intValue(state["issues"], 0) > 0 {
		suggestions = append(suggestions, "Fix TODOs and avoid eval()")
	}
	if intValue(state["complexity_score"], 0) > 10 {
		suggestions = append(suggestions, "Refactor large functions into smaller ones")
	}
	state["suggestions"] = suggestions

	return &domain.Result{Note: fmt.Sprintf("%d suggestions", len(suggestions))}, nil
}

// evaluateQuality scores the code and loops back to suggest while the
// score is under threshold, suggestions exist and rounds remain
func evaluateQuality(ctx context.Context, state domain.State, params map[string]any, tools registry.ToolSet) (*domain.Result, error) {
	issues := intValue(state["issues"], 0)
	complexity := intValue(state["complexity_score"], 0)
	quality := max(0, 100-(issues*20+complexity*2))
	state["quality_score"] = quality

	threshold := intValue(params["threshold"], DefaultThreshold)
	maxRounds := intValue(params["max_rounds"], DefaultMaxRounds)
	rounds := intValue(state["review_rounds"], 0) + 1
	state["review_rounds"] = rounds

	if quality < threshold && hasSuggestions(state["suggestions"]) {
		if rounds < maxRounds {
			return &domain.Result{
				Next: "suggest",
				Note: fmt.Sprintf("quality %d < %d, loop to suggest", quality, threshold),
			}, nil
		}
		return &domain.Result{
			Note: fmt.Sprintf("quality %d < %d, giving up after %d rounds", quality, threshold, rounds),
		}, nil
	}

	return &domain.Result{Note: fmt.Sprintf("quality %d, finished", quality)}, nil
}

// llmReview asks the configured model to review every extracted function
func llmReview(ctx context.Context, state domain.State, params map[string]any, tools registry.ToolSet) (*domain.Result, error) {
	if !tools.Has(ToolLLMReview) {
		return &domain.Result{Note: "llm review skipped: no model configured"}, nil
	}

	fns := functions(state["functions"])
	reviews := make([]string, 0, len(fns))
	for _, fn := range fns {
		res, err := tools.Call(ctx, ToolLLMReview, codeOf(fn))
		if err != nil {
			return nil, err
		}
		review, _ := res["review"].(string)
		reviews = append(reviews, review)
	}

	return &domain.Result{
		StateDelta: map[string]any{"llm_review": strings.Join(reviews, "\n\n")},
		Note:       fmt.Sprintf("reviewed %d functions", len(reviews)),
	}, nil
}
