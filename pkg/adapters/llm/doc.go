// Package llm builds the ports.LLMClient used by the llm_review tool.
//
// NewClient selects an implementation by provider name; only "anthropic"
// exists. The service runs without a client when no API key is set.
package llm
