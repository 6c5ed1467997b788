package codereview

// intValue reads a whole number from a state or param value. Values that
// came through JSON decode as float64.
func intValue(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}

// functions reads the extracted function list from state
func functions(v any) []map[string]any {
	switch list := v.(type) {
	case []map[string]any:
		return list
	case []any:
		out := make([]map[string]any, 0, len(list))
		for _, item := range list {
			if fn, ok := item.(map[string]any); ok {
				out = append(out, fn)
			}
		}
		return out
	default:
		return nil
	}
}

func hasSuggestions(v any) bool {
	switch list := v.(type) {
	case []string:
		return len(list) > 0
	case []any:
		return len(list) > 0
	default:
		return false
	}
}

func codeOf(fn map[string]any) string {
	code, _ := fn["code"].(string)
	return code
}
