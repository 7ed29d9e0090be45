// Package ports defines the interfaces the client drives: the callback
// network stack, the TLS layer, the network link and the config parser.
// The client depends on these abstractions; infrastructure adapters and the
// in-memory test stack implement them.
package ports
