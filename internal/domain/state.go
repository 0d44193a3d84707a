package domain

// State is a complete configuration snapshot used for bulk import.
// Rows are inserted in field order so that references resolve.
type State struct {
	Hosts         []*Host         `json:"hosts,omitempty" yaml:"hosts,omitempty"`
	Interfaces    []*Interface    `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	ValueMappings []*ValueMapping `json:"valuemappings,omitempty" yaml:"valuemappings,omitempty"`
	Items         []*Item         `json:"items,omitempty" yaml:"items,omitempty"`
	Triggers      []*Trigger      `json:"triggers,omitempty" yaml:"triggers,omitempty"`
	Functions     []*Function     `json:"functions,omitempty" yaml:"functions,omitempty"`
	HostMacros    []*HostMacro    `json:"hostmacros,omitempty" yaml:"hostmacros,omitempty"`
	GlobalMacros  []*GlobalMacro  `json:"globalmacros,omitempty" yaml:"globalmacros,omitempty"`
	History       []*HistoryValue `json:"history,omitempty" yaml:"history,omitempty"`
}

// ImportSummary reports how many rows of each kind were written by an import.
type ImportSummary struct {
	BatchID       string `json:"batch_id"`
	Hosts         int    `json:"hosts"`
	TemplateLinks int    `json:"template_links"`
	Interfaces    int    `json:"interfaces"`
	ValueMappings int    `json:"valuemappings"`
	Items         int    `json:"items"`
	Triggers      int    `json:"triggers"`
	Functions     int    `json:"functions"`
	HostMacros    int    `json:"hostmacros"`
	GlobalMacros  int    `json:"globalmacros"`
	History       int    `json:"history"`
}
