package macro

import (
	"errors"
	"reflect"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestParseUserMacro(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantNm  string
		wantCtx *string
		wantErr bool
	}{
		{"plain", "{$PORT}", "PORT", nil, false},
		{"dotted", "{$DB.PORT_2}", "DB.PORT_2", nil, false},
		{"unquoted context", "{$PORT:eth0}", "PORT", strPtr("eth0"), false},
		{"quoted context", `{$PORT:"eth0"}`, "PORT", strPtr("eth0"), false},
		{"quoted context with escaped quote", `{$PORT:"a\"b"}`, "PORT", strPtr(`a"b`), false},
		{"quoted context with brace", `{$PORT:"a}b"}`, "PORT", strPtr("a}b"), false},
		{"leading spaces", `{$PORT:  "x" }`, "PORT", strPtr("x"), false},
		{"empty context", "{$PORT:}", "PORT", strPtr(""), false},
		{"lowercase name", "{$port}", "", nil, true},
		{"unterminated quote", `{$PORT:"eth0}`, "", nil, true},
		{"garbage after quote", `{$PORT:"eth0"x}`, "", nil, true},
		{"not a macro", "{HOST.NAME}", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseUserMacro(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseUserMacro(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedMacro) {
					t.Errorf("expected ErrMalformedMacro, got %v", err)
				}
				return
			}
			if m.Name != tt.wantNm {
				t.Errorf("name = %q, want %q", m.Name, tt.wantNm)
			}
			if !reflect.DeepEqual(m.Context, tt.wantCtx) {
				t.Errorf("context = %v, want %v", m.Context, tt.wantCtx)
			}
			if m.Raw != tt.input {
				t.Errorf("raw = %q, want %q", m.Raw, tt.input)
			}
		})
	}
}

func TestUserMacro_SameContext(t *testing.T) {
	quoted, _ := ParseUserMacro(`{$A:"ctx"}`)
	unquoted, _ := ParseUserMacro(`{$A:ctx}`)
	other, _ := ParseUserMacro(`{$A:"other"}`)
	none, _ := ParseUserMacro(`{$A}`)

	if !quoted.SameContext(unquoted) {
		t.Error("quoted and unquoted contexts should match")
	}
	if quoted.SameContext(other) {
		t.Error("different contexts should not match")
	}
	if quoted.SameContext(none) || none.SameContext(quoted) {
		t.Error("context and no context should not match")
	}
	if !none.SameContext(none) {
		t.Error("two context-less macros should match")
	}
}

func TestUserMacro_SearchPrefixes(t *testing.T) {
	none, _ := ParseUserMacro(`{$A}`)
	withCtx, _ := ParseUserMacro(`{$A:"x"}`)
	if got := none.SearchPrefixes(); !reflect.DeepEqual(got, []string{"{$A}"}) {
		t.Errorf("SearchPrefixes() = %q", got)
	}
	if got := withCtx.SearchPrefixes(); !reflect.DeepEqual(got, []string{"{$A}", "{$A:"}) {
		t.Errorf("SearchPrefixes() = %q", got)
	}
}

func TestFindUserMacros(t *testing.T) {
	texts := []string{
		`{$A} and {$B:"x"} and {$A} and {$lower} and {$`,
		`{$C} {$D:"broken}`,
		`{$E}`,
	}

	got := FindUserMacros(texts)
	want := []string{"{$A}", `{$B:"x"}`, "{$E}"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindUserMacros = %v, want %v", got, want)
	}
}
