package domain

// HostMacro is a user macro defined on a host or template.
type HostMacro struct {
	ID     string `json:"hostmacroid" yaml:"hostmacroid" db:"hostmacroid"`
	HostID string `json:"hostid" yaml:"hostid" db:"hostid"`
	Macro  string `json:"macro" yaml:"macro" db:"macro"`
	Value  string `json:"value" yaml:"value" db:"value"`
}

// GlobalMacro is a user macro defined for the whole installation.
type GlobalMacro struct {
	ID    string `json:"globalmacroid" yaml:"globalmacroid" db:"globalmacroid"`
	Macro string `json:"macro" yaml:"macro" db:"macro"`
	Value string `json:"value" yaml:"value" db:"value"`
}

// HostScope is everything user-macro resolution needs to know about one host:
// its own macro definitions and the templates linked directly to it.
type HostScope struct {
	HostID      string
	TemplateIDs []string
	Macros      []*HostMacro
}
