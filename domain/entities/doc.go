// Package entities provides the core types of a fetch: the resolved address
// slot, the serialized request, received segment chains, the establish state
// and the fetch configuration.
package entities
