package domain

// Trigger is a problem expression over item functions.
// Function references appear in the expression as {<functionid>}.
type Trigger struct {
	ID          string `json:"triggerid" yaml:"triggerid" db:"triggerid"`
	Expression  string `json:"expression" yaml:"expression" db:"expression"`
	Description string `json:"description" yaml:"description" db:"description"`
}

// Function binds a trigger expression placeholder to an item.
type Function struct {
	ID        string `json:"functionid" yaml:"functionid" db:"functionid"`
	TriggerID string `json:"triggerid" yaml:"triggerid" db:"triggerid"`
	ItemID    string `json:"itemid" yaml:"itemid" db:"itemid"`
	Name      string `json:"name" yaml:"name" db:"name"`
	Parameter string `json:"parameter" yaml:"parameter" db:"parameter"`
}

// EventTime identifies the moment a trigger event was generated.
type EventTime struct {
	Clock int64 `json:"clock"`
	NS    int   `json:"ns"`
}

// FunctionHost is a function joined through its item to the owning host.
type FunctionHost struct {
	TriggerID  string `db:"triggerid"`
	FunctionID string `db:"functionid"`
	HostID     string `db:"hostid"`
	Host       string `db:"host"`
	Name       string `db:"name"`
}

// FunctionInterface is a function joined to a main interface of the owning host.
// Port is empty unless it was requested.
type FunctionInterface struct {
	TriggerID  string        `db:"triggerid"`
	FunctionID string        `db:"functionid"`
	IP         string        `db:"ip"`
	DNS        string        `db:"dns"`
	Type       InterfaceType `db:"type"`
	UseIP      bool          `db:"useip"`
	Port       string        `db:"port"`
}

// FunctionItem is a function joined to its item metadata.
type FunctionItem struct {
	TriggerID  string    `db:"triggerid"`
	FunctionID string    `db:"functionid"`
	ItemID     string    `db:"itemid"`
	ValueType  ValueType `db:"value_type"`
	Units      string    `db:"units"`
	ValueMapID string    `db:"valuemapid"`
}
