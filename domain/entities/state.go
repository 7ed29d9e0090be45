package entities

// EstablishState is a step of bringing up a TLS connection. Each state
// records which resources have been acquired so a failure releases exactly
// those.
type EstablishState uint8

const (
	// StateInit holds nothing.
	StateInit EstablishState = iota
	// StateConfigured holds a TLS configuration.
	StateConfigured
	// StateHandleAllocated adds a connection handle.
	StateHandleAllocated
	// StateSNISet has the server name written into the TLS session.
	StateSNISet
	// StateCallbacksInstalled adds the connection context and its callbacks.
	StateCallbacksInstalled
	// StateConnectIssued has a connect request accepted by the stack.
	StateConnectIssued
	// StateEstablished has the handshake completed.
	StateEstablished
	// StateFailed is terminal; everything acquired has been released.
	StateFailed
)

var establishStateNames = [...]string{
	StateInit:               "init",
	StateConfigured:         "configured",
	StateHandleAllocated:    "handle_allocated",
	StateSNISet:             "sni_set",
	StateCallbacksInstalled: "callbacks_installed",
	StateConnectIssued:      "connect_issued",
	StateEstablished:        "established",
	StateFailed:             "failed",
}

func (s EstablishState) String() string {
	if int(s) < len(establishStateNames) {
		return establishStateNames[s]
	}
	return "unknown"
}
