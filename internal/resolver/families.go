package resolver

import "github.com/bcnelson/trigger-macros/internal/domain"

// HostMacro enumerates the macros answered from the host row.
type HostMacro int

const (
	HostMacroID HostMacro = iota + 1
	HostMacroHost
	HostMacroName
)

func parseHostMacro(name string) (HostMacro, bool) {
	switch name {
	case "HOST.ID":
		return HostMacroID, true
	case "HOSTNAME", "HOST.HOST":
		return HostMacroHost, true
	case "HOST.NAME":
		return HostMacroName, true
	}
	return 0, false
}

func (m HostMacro) value(row *domain.FunctionHost) string {
	switch m {
	case HostMacroID:
		return row.HostID
	case HostMacroHost:
		return row.Host
	case HostMacroName:
		return row.Name
	}
	return ""
}

// InterfaceMacro enumerates the macros answered from the host's main interface.
type InterfaceMacro int

const (
	InterfaceMacroIP InterfaceMacro = iota + 1
	InterfaceMacroDNS
	InterfaceMacroConn
	InterfaceMacroPort
)

func parseInterfaceMacro(name string) (InterfaceMacro, bool) {
	switch name {
	case "IPADDRESS", "HOST.IP":
		return InterfaceMacroIP, true
	case "HOST.DNS":
		return InterfaceMacroDNS, true
	case "HOST.CONN":
		return InterfaceMacroConn, true
	case "HOST.PORT":
		return InterfaceMacroPort, true
	}
	return 0, false
}

func (m InterfaceMacro) value(row *domain.FunctionInterface) string {
	switch m {
	case InterfaceMacroIP:
		return row.IP
	case InterfaceMacroDNS:
		return row.DNS
	case InterfaceMacroConn:
		if row.UseIP {
			return row.IP
		}
		return row.DNS
	case InterfaceMacroPort:
		return row.Port
	}
	return ""
}

// ItemMacro enumerates the macros answered from item history.
type ItemMacro int

const (
	ItemMacroLastValue ItemMacro = iota + 1
	ItemMacroValue
)

func parseItemMacro(name string) (ItemMacro, bool) {
	switch name {
	case "ITEM.LASTVALUE":
		return ItemMacroLastValue, true
	case "ITEM.VALUE":
		return ItemMacroValue, true
	}
	return 0, false
}
