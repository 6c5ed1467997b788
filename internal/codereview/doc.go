// Package codereview provides the example code review workflow: the
// analysis tools, the node handlers that use them and the graphs that
// wire them together.
//
// The workflow reads source text from state["code"] and leaves its
// findings in state: functions, complexity_score, issues, suggestions
// and quality_score. evaluate_quality loops back to suggest_improvements
// while the score is under the node's threshold param, at most
// max_rounds times.
package codereview
