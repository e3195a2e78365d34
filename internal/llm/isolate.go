package llm

import "strings"

// IsolateJSON extracts the candidate JSON object from free-form model
// output: the substring from the first '{' to the last '}' inclusive. This
// is the system's sole isolation heuristic; it assumes one JSON object and
// no trailing '}' in surrounding prose. When no '{' is present the result
// is empty and downstream parsing fails gracefully.
func IsolateJSON(response string) string {
	start := strings.Index(response, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(response, "}")
	if end < start {
		return ""
	}
	return response[start : end+1]
}
