package macro

import "regexp"

var (
	referencePattern = regexp.MustCompile(`\$([1-9])`)
	numberPattern    = regexp.MustCompile(`[-+]?[0-9]+[.]?[0-9]*[KMGTsmhdw]?`)
)

// functionSentinel replaces function placeholders so their ids are not taken
// for numeric operands.
const functionSentinel = "function"

// ResolveReferences maps every $1..$9 token in text to the N-th numeric literal
// of expression, or to "" when the expression has fewer literals.
// The expression is not inspected when text has no reference tokens.
func ResolveReferences(expression, text string) map[string]string {
	result := make(map[string]string)

	refs := referencePattern.FindAllStringSubmatch(text, -1)
	if len(refs) == 0 {
		return result
	}

	stripped := functionIDPattern.ReplaceAllString(expression, functionSentinel)
	values := numberPattern.FindAllString(stripped, -1)

	for _, ref := range refs {
		n := int(ref[1][0] - '0')
		value := ""
		if n <= len(values) {
			value = values[n-1]
		}
		result[ref[0]] = value
	}
	return result
}
