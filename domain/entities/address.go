package entities

import (
	"net/netip"
)

// AddrFamily selects the IP version a connection handle is bound to.
type AddrFamily uint8

const (
	// FamilyIPv4 binds a handle to IPv4 peers.
	FamilyIPv4 AddrFamily = 4
	// FamilyIPv6 binds a handle to IPv6 peers.
	FamilyIPv6 AddrFamily = 6
)

// String returns "ipv4" or "ipv6".
func (f AddrFamily) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return "unknown"
	}
}

type addrState uint8

const (
	addrUnset addrState = iota
	addrResolved
	addrFailed
)

// Address is the slot a hostname lookup writes its answer into.
// The zero value is the "unset" sentinel. A completed lookup moves it exactly
// once to either a concrete IP or the "failed" sentinel.
type Address struct {
	ip    netip.Addr
	state addrState
}

// UnsetAddress returns the sentinel a lookup slot starts with.
func UnsetAddress() Address {
	return Address{}
}

// FailedAddress returns the sentinel written by a lookup that found nothing.
func FailedAddress() Address {
	return Address{state: addrFailed}
}

// AddressFrom wraps a resolved IP. An invalid or unspecified IP yields the
// failed sentinel, since neither can be connected to.
func AddressFrom(ip netip.Addr) Address {
	if !ip.IsValid() || ip.IsUnspecified() {
		return FailedAddress()
	}
	return Address{ip: ip.Unmap(), state: addrResolved}
}

// IsUnset reports whether no lookup result has been written yet.
func (a Address) IsUnset() bool { return a.state == addrUnset }

// IsFailed reports whether the lookup completed without an address.
func (a Address) IsFailed() bool { return a.state == addrFailed }

// IsValid reports whether the slot holds a concrete, connectable address.
func (a Address) IsValid() bool { return a.state == addrResolved }

// IP returns the resolved IP, or the zero netip.Addr for either sentinel.
func (a Address) IP() netip.Addr { return a.ip }

// Family returns the IP version of a resolved address. Sentinels report IPv4,
// which is what the handle defaults to.
func (a Address) Family() AddrFamily {
	if a.IsValid() && a.ip.Is6() {
		return FamilyIPv6
	}
	return FamilyIPv4
}

// String renders the address for progress output.
func (a Address) String() string {
	switch a.state {
	case addrUnset:
		return "<unset>"
	case addrFailed:
		return "<failed>"
	default:
		return a.ip.String()
	}
}
