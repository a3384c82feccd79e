// Package kvstore defines the durable string-keyed store abstraction.
package kvstore

// Provider is the interface for durable key-value operations. Values
// are opaque byte payloads (JSON-serialized by the callers). A missing
// key is reported as an error satisfying errors.Is(err, os.ErrNotExist).
type Provider interface {
	// Get returns the value stored under key.
	Get(key string) ([]byte, error)
	// Set durably writes value under key, replacing any previous value.
	Set(key string, value []byte) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
	// Keys returns every stored key with the given prefix
	// (empty prefix matches all keys).
	Keys(prefix string) ([]string, error)
	// Close releases underlying resources.
	Close() error
}
