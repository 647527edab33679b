package agent

import (
	"sort"
	"strings"
)

// Substitute replaces every literal {{key}} in s with vars[key] in a single pass.
// Unknown placeholders are left as they are and replaced values are never re-expanded.
func Substitute(s string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(s, "{{") {
		return s
	}

	// Sorted keys keep the replacer deterministic when one key is a prefix of another.
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{{"+k+"}}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
