package macro

import "regexp"

var functionIDPattern = regexp.MustCompile(`\{([0-9]+)\}`)

// FunctionMap maps a 1-based function position in an expression to its function id.
// Position 0 mirrors position 1 so unsuffixed macros address the first function.
type FunctionMap map[int]string

// MapFunctions scans expression for {<digits>} placeholders left to right.
func MapFunctions(expression string) FunctionMap {
	functions := make(FunctionMap)
	for i, m := range functionIDPattern.FindAllStringSubmatch(expression, -1) {
		functions[i+1] = m[1]
	}
	if id, ok := functions[1]; ok {
		functions[0] = id
	}
	return functions
}

// IDs returns the distinct function ids in position order, excluding the position 0 alias.
func (f FunctionMap) IDs() []string {
	seen := make(map[string]bool, len(f))
	ids := make([]string, 0, len(f))
	for pos := 1; pos <= len(f); pos++ {
		id, ok := f[pos]
		if !ok {
			break
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
