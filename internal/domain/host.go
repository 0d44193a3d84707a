package domain

// InterfaceType is the collection interface kind of a host interface.
type InterfaceType int

// Interface types as stored in the interface table.
const (
	InterfaceTypeAgent InterfaceType = 1
	InterfaceTypeSNMP  InterfaceType = 2
	InterfaceTypeIPMI  InterfaceType = 3
	InterfaceTypeJMX   InterfaceType = 4
)

// Priority ranks interface types when several main interfaces back the same function.
// Higher wins; unknown types rank below every known type.
func (t InterfaceType) Priority() int {
	switch t {
	case InterfaceTypeAgent:
		return 4
	case InterfaceTypeSNMP:
		return 3
	case InterfaceTypeJMX:
		return 2
	case InterfaceTypeIPMI:
		return 1
	default:
		return 0
	}
}

// Valid reports whether t is one of the known interface types.
func (t InterfaceType) Valid() bool {
	return t.Priority() > 0
}

// Host is a monitored host or a template.
// Templates are hosts with IsTemplate set; both may link further templates.
type Host struct {
	ID          string   `json:"hostid" yaml:"hostid" db:"hostid"`
	Host        string   `json:"host" yaml:"host" db:"host"`
	Name        string   `json:"name" yaml:"name" db:"name"`
	IsTemplate  bool     `json:"is_template,omitempty" yaml:"is_template,omitempty" db:"is_template"`
	TemplateIDs []string `json:"templateids,omitempty" yaml:"templateids,omitempty" db:"-"`
}

// Interface is a network interface of a host.
type Interface struct {
	ID     string        `json:"interfaceid" yaml:"interfaceid" db:"interfaceid"`
	HostID string        `json:"hostid" yaml:"hostid" db:"hostid"`
	Main   bool          `json:"main" yaml:"main" db:"main"`
	Type   InterfaceType `json:"type" yaml:"type" db:"type"`
	UseIP  bool          `json:"useip" yaml:"useip" db:"useip"`
	IP     string        `json:"ip" yaml:"ip" db:"ip"`
	DNS    string        `json:"dns" yaml:"dns" db:"dns"`
	Port   string        `json:"port" yaml:"port" db:"port"`
}
