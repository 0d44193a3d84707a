package domain

// ValueType is the storage type of item values.
type ValueType int

// Item value types.
const (
	ValueTypeFloat ValueType = 0
	ValueTypeStr   ValueType = 1
	ValueTypeLog   ValueType = 2
	ValueTypeUint  ValueType = 3
	ValueTypeText  ValueType = 4
)

// Numeric reports whether values of this type are numbers.
func (v ValueType) Numeric() bool {
	return v == ValueTypeFloat || v == ValueTypeUint
}

// Valid reports whether v is a known value type.
func (v ValueType) Valid() bool {
	return v >= ValueTypeFloat && v <= ValueTypeText
}

// Item is a monitored metric of a host.
type Item struct {
	ID         string    `json:"itemid" yaml:"itemid" db:"itemid"`
	HostID     string    `json:"hostid" yaml:"hostid" db:"hostid"`
	Key        string    `json:"key_" yaml:"key_" db:"key_"`
	Name       string    `json:"name" yaml:"name" db:"name"`
	ValueType  ValueType `json:"value_type" yaml:"value_type" db:"value_type"`
	Units      string    `json:"units,omitempty" yaml:"units,omitempty" db:"units"`
	ValueMapID string    `json:"valuemapid,omitempty" yaml:"valuemapid,omitempty" db:"valuemapid"`
}

// HistoryValue is a single collected value of an item.
type HistoryValue struct {
	ItemID string `json:"itemid" yaml:"itemid" db:"itemid"`
	Clock  int64  `json:"clock" yaml:"clock" db:"clock"`
	NS     int    `json:"ns" yaml:"ns" db:"ns"`
	Value  string `json:"value" yaml:"value" db:"value"`
}

// ValueMapping maps a raw item value to a display value.
type ValueMapping struct {
	ValueMapID string `json:"valuemapid" yaml:"valuemapid" db:"valuemapid"`
	Value      string `json:"value" yaml:"value" db:"value"`
	NewValue   string `json:"newvalue" yaml:"newvalue" db:"newvalue"`
}
