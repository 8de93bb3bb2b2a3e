// ABOUTME: Prompt template rendering against execution state using {{field}} placeholders.
// ABOUTME: Missing fields render as empty strings; PromptKeys extracts references for trace snapshots.
package playbook

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// RenderPrompt substitutes {{field}} placeholders in the template with the
// corresponding state values. Missing fields render as empty strings.
func RenderPrompt(template string, st *State) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		v, ok := st.Get(key)
		if !ok {
			return ""
		}
		return stringifyValue(v)
	})
}

// PromptKeys returns the state fields a template references, deduplicated
// and sorted.
func PromptKeys(template string) []string {
	seen := make(map[string]bool)
	for _, match := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		seen[match[1]] = true
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stringifyValue renders a state value for prompt interpolation.
func stringifyValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, ", ")
	default:
		return fmt.Sprintf("%v", val)
	}
}
