package ports

// TLSConfig is an opaque client configuration built by a TLSProvider.
// Only the provider that built it can interpret or free it.
type TLSConfig any

// TLSProvider builds and frees TLS client configurations.
type TLSProvider interface {
	// NewClientConfig builds a configuration that verifies peers against the
	// given trust anchor (a PEM or DER CA certificate).
	NewClientConfig(trustAnchor []byte) (TLSConfig, error)

	// FreeConfig releases a configuration. It must be called exactly once
	// per configuration, after every handle using it has been released.
	FreeConfig(cfg TLSConfig)
}

// TLSSession is the narrow escape hatch into the TLS session of a handle.
//
// The connection interface has no way to carry the server name, so the
// hostname for Server Name Indication is written directly into the session.
// Nothing else of the session is exposed.
type TLSSession interface {
	// SetHostname sets the name sent in the ClientHello and checked against
	// the server certificate. It must be called before Connect.
	SetHostname(name string) error
}
