package tpm2

import "sync"

// ResponseDecoder parses the typed parameter area of a response for one
// command. It must return the number of parameter bytes it consumed, so
// the executor can split any remaining bytes into the authorization-
// response area (spec §4.3 "Dispatch").
type ResponseDecoder func(handles []Handle, params []byte) (response interface{}, consumed int, err error)

// Registry maps a command code to its response decoder. The zero value
// is usable. A process normally populates one Registry at startup and
// shares it across executors (spec §4.3 "Dispatch": "populated at
// startup").
type Registry struct {
	mu       sync.RWMutex
	decoders map[CommandCode]ResponseDecoder
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[CommandCode]ResponseDecoder)}
}

// Register associates code with decoder, overwriting any previous
// registration.
func (r *Registry) Register(code CommandCode, decoder ResponseDecoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.decoders == nil {
		r.decoders = make(map[CommandCode]ResponseDecoder)
	}
	r.decoders[code] = decoder
}

// Lookup returns the decoder for code, or (nil, false) if none is
// registered.
func (r *Registry) Lookup(code CommandCode) (ResponseDecoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decoders[code]
	return d, ok
}

// DefaultRegistry is pre-populated with the representative commands
// this package implements (spec §4.4); constructed in commands.go's
// init.
var DefaultRegistry = NewRegistry()
