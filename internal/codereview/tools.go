package codereview

import (
	"context"
	"fmt"
	"strings"

	"github.com/aescanero/dagoflow/internal/application/registry"
	"github.com/aescanero/dagoflow/pkg/ports"
)

// Tool names
const (
	ToolDetectSmells   = "detect_smells"
	ToolCalcComplexity = "calc_complexity"
	ToolLLMReview      = "llm_review"
)

// longSourceLines is the line count above which source counts as a smell.
const longSourceLines = 200

var complexityTokens = []string{"if ", "for ", "while ", "try:", "except"}

const reviewSystemPrompt = "You are a senior engineer reviewing code. " +
	"Reply with a short list of concrete improvements, most important first."

// DetectSmells counts naive code smells: TODO markers, overly long source
// and eval calls, which weigh double.
func DetectSmells(code string) int {
	issues := 0
	if strings.Contains(code, "TODO") {
		issues++
	}
	if lineCount(code) > longSourceLines {
		issues++
	}
	if strings.Contains(code, "eval(") {
		issues += 2
	}
	return issues
}

// CalcComplexity approximates complexity as the number of branch and loop
// keywords in code.
func CalcComplexity(code string) int {
	total := 0
	for _, token := range complexityTokens {
		total += strings.Count(code, token)
	}
	return total
}

func lineCount(code string) int {
	lines := strings.Count(code, "\n")
	if code != "" && !strings.HasSuffix(code, "\n") {
		lines++
	}
	return lines
}

// RegisterTools adds the analysis tools to tools. llm_review is only
// registered when llm is non-nil.
func RegisterTools(tools *registry.Tools, llm ports.LLMClient) {
	tools.Register(ToolDetectSmells, func(ctx context.Context, input string) (map[string]any, error) {
		return map[string]any{"issues": DetectSmells(input)}, nil
	})

	tools.Register(ToolCalcComplexity, func(ctx context.Context, input string) (map[string]any, error) {
		return map[string]any{"complexity": CalcComplexity(input)}, nil
	})

	if llm == nil {
		return
	}

	tools.Register(ToolLLMReview, func(ctx context.Context, input string) (map[string]any, error) {
		review, err := llm.Complete(ctx, reviewSystemPrompt, input)
		if err != nil {
			return nil, fmt.Errorf("llm review: %w", err)
		}
		return map[string]any{"review": review}, nil
	})
}
