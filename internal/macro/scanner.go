package macro

import (
	"sort"
	"strconv"
)

// Positions is the set of function positions a macro name was used with.
// Position 0 stands for the unsuffixed form.
type Positions map[int]struct{}

// Add records a position.
func (p Positions) Add(pos int) {
	p[pos] = struct{}{}
}

// Sorted returns the positions in ascending order.
func (p Positions) Sorted() []int {
	out := make([]int, 0, len(p))
	for pos := range p {
		out = append(out, pos)
	}
	sort.Ints(out)
	return out
}

// FindMacros returns the distinct literal macro occurrences matching g across
// all texts, in first-seen order.
func FindMacros(g Grammar, texts []string) []string {
	if g == GrammarUser {
		return FindUserMacros(texts)
	}

	re := grammarPatterns[g]
	seen := make(map[string]bool)
	var result []string
	for _, text := range texts {
		for _, m := range re.FindAllString(text, -1) {
			if !seen[m] {
				seen[m] = true
				result = append(result, m)
			}
		}
	}
	return result
}

// FindFunctionMacros returns, for every macro name matching g in text, the set
// of function positions it was used with. Unsuffixed occurrences map to 0.
// Grammars without a name group (item numbers, user macros) yield nothing.
func FindFunctionMacros(g Grammar, text string) map[string]Positions {
	result := make(map[string]Positions)

	re, ok := grammarPatterns[g]
	if !ok || re.NumSubexp() == 0 {
		return result
	}

	for _, m := range re.FindAllStringSubmatch(text, -1) {
		pos := 0
		if len(m) > 2 && m[2] != "" {
			pos, _ = strconv.Atoi(m[2])
		}
		if result[m[1]] == nil {
			result[m[1]] = make(Positions)
		}
		result[m[1]].Add(pos)
	}
	return result
}

// Render builds the substitution key for a macro name used at a function position.
func Render(name string, pos int) string {
	if pos == 0 {
		return "{" + name + "}"
	}
	return "{" + name + strconv.Itoa(pos) + "}"
}
