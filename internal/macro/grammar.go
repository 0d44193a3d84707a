// Package macro finds and parses macro tokens in trigger expressions and texts.
//
// Nothing here touches storage: the package only answers which macros a text
// contains, which function a macro occurrence is bound to, and what the
// expression references $1..$9 stand for.
package macro

import (
	"fmt"
	"regexp"
)

// Grammar selects one of the fixed macro token grammars.
type Grammar int

// Supported grammars.
const (
	GrammarHost Grammar = iota
	GrammarHostID
	GrammarHostFunction
	GrammarInterface
	GrammarInterfaceFunction
	GrammarInterfaceFunctionNoPort
	GrammarItemFunction
	GrammarItemNumber
	GrammarTrigger
	GrammarUser
)

var grammarNames = map[Grammar]string{
	GrammarHost:                    "host",
	GrammarHostID:                  "host_id",
	GrammarHostFunction:            "host_function",
	GrammarInterface:               "interface",
	GrammarInterfaceFunction:       "interface_function",
	GrammarInterfaceFunctionNoPort: "interface_function_no_port",
	GrammarItemFunction:            "item_function",
	GrammarItemNumber:              "item_number",
	GrammarTrigger:                 "trigger",
	GrammarUser:                    "user",
}

// Builtin macros use fixed-token alternation. Function variants carry an
// optional single digit 1..9 selecting the N-th function of the expression.
var grammarPatterns = map[Grammar]*regexp.Regexp{
	GrammarHost:                    regexp.MustCompile(`\{(HOSTNAME|HOST\.HOST|HOST\.NAME)\}`),
	GrammarHostID:                  regexp.MustCompile(`\{(HOST\.ID)\}`),
	GrammarHostFunction:            regexp.MustCompile(`\{(HOSTNAME|HOST\.ID|HOST\.HOST|HOST\.NAME)([1-9]?)\}`),
	GrammarInterface:               regexp.MustCompile(`\{(IPADDRESS|HOST\.IP|HOST\.DNS|HOST\.CONN)\}`),
	GrammarInterfaceFunction:       regexp.MustCompile(`\{(IPADDRESS|HOST\.IP|HOST\.DNS|HOST\.CONN|HOST\.PORT)([1-9]?)\}`),
	GrammarInterfaceFunctionNoPort: regexp.MustCompile(`\{(IPADDRESS|HOST\.IP|HOST\.DNS|HOST\.CONN)([1-9]?)\}`),
	GrammarItemFunction:            regexp.MustCompile(`\{(ITEM\.LASTVALUE|ITEM\.VALUE)([1-9]?)\}`),
	GrammarItemNumber:              regexp.MustCompile(`\$[1-9]`),
	GrammarTrigger:                 regexp.MustCompile(`\{(TRIGGER\.ID)\}`),
}

// String returns the grammar's wire name.
func (g Grammar) String() string {
	if name, ok := grammarNames[g]; ok {
		return name
	}
	return fmt.Sprintf("grammar(%d)", int(g))
}

// ParseGrammar looks up a grammar by its wire name.
func ParseGrammar(name string) (Grammar, error) {
	for g, n := range grammarNames {
		if n == name {
			return g, nil
		}
	}
	return 0, fmt.Errorf("unknown macro grammar %q", name)
}

// GrammarNames lists all grammar wire names in declaration order.
func GrammarNames() []string {
	names := make([]string, 0, len(grammarNames))
	for g := GrammarHost; g <= GrammarUser; g++ {
		names = append(names, grammarNames[g])
	}
	return names
}
