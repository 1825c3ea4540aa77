package tpm2

import (
	"context"
	"fmt"
	"sync"
)

// Outcome is the discriminated result of executing a command: either a
// typed response (Err == nil) or an error, which may be a transport
// failure, a TPM protocol error/warning, or a local session/codec error
// (spec §4.3 "Responsibility": "either returns the typed response or a
// structured error").
type Outcome[T any] struct {
	Value T
	Err   error
}

// Ok reports whether the command completed successfully.
func (o Outcome[T]) Ok() bool { return o.Err == nil }

// Executor submits encoded commands through a Transport, decodes
// responses against a Registry, and maintains the authorization-session
// bookkeeping described in spec §4.3. One Executor corresponds to a
// single TPM device; per spec §5 "TPM serialization", a device processes
// commands strictly sequentially, so Executor serializes all calls with
// an internal mutex.
type Executor struct {
	mu       sync.Mutex
	tr       Transport
	registry *Registry

	// handles tracks the lifecycle of transient/session handles created
	// through this executor, so callers can rely on scoped release (spec
	// §5 "Resource policy").
	handles map[Handle]struct{}
}

// NewExecutor returns an Executor that submits through tr and decodes
// responses using registry.
func NewExecutor(tr Transport, registry *Registry) *Executor {
	if registry == nil {
		registry = DefaultRegistry
	}
	return &Executor{tr: tr, registry: registry, handles: make(map[Handle]struct{})}
}

// sessionBinding pairs a Session with the attributes the caller wants to
// use it with for one command.
type sessionBinding struct {
	session *Session
	attrs   SessionAttributes
}

// Execute runs one command: it asks each bound session for a fresh
// nonce-caller/HMAC pair, assembles the wire command, submits it through
// the transport, classifies the response code, decodes the typed
// parameters via the registry, and updates session nonce state from the
// response's authorization area.
func (e *Executor) Execute(ctx context.Context, code CommandCode, handles []Handle, cpHash []byte, parameters []byte, bindings []sessionBinding) (*Response, interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	auths := make([]AuthArea, 0, len(bindings))
	for _, b := range bindings {
		nonce, hmacField, err := b.session.beginUse(cpHash, b.attrs)
		if err != nil {
			return nil, nil, err
		}
		auths = append(auths, AuthArea{
			SessionHandle:     b.session.Handle,
			NonceCaller:       nonce,
			SessionAttributes: b.attrs,
			HMAC:              hmacField,
		})
	}

	cmd := &Command{CommandCode: code, Handles: handles, Auths: auths, Parameters: parameters}
	wire, err := cmd.Encode()
	if err != nil {
		return nil, nil, fmt.Errorf("tpm2: failed to encode command %s: %w", code, err)
	}

	raw, err := e.tr.Submit(ctx, wire)
	if err != nil {
		return nil, nil, &TransportError{Op: "submit", err: err}
	}

	resp, err := DecodeResponse(raw, len(auths) > 0, len(auths))
	if err != nil {
		return nil, nil, fmt.Errorf("tpm2: malformed response to %s: %w", code, err)
	}

	if resp.ResponseCode != Success {
		protoErr := DecodeResponseCode(code, resp.ResponseCode)
		// A failed command still consumes the session's continue
		// semantics per the TPM spec in most error paths; conservatively
		// leave session state untouched and let the caller retry or
		// abandon, except that a format-zero TPM_RC_RETRY warning is
		// surfaced distinctly so callers can write simple retry loops
		// (spec §7 "Propagation").
		return resp, nil, protoErr
	}

	var typed interface{}
	var consumed int
	if decoder, ok := e.registry.Lookup(code); ok {
		typed, consumed, err = decoder(handles, resp.Parameters)
		if err != nil {
			return resp, nil, fmt.Errorf("tpm2: failed to decode response parameters for %s: %w", code, err)
		}
	} else {
		return resp, nil, &ErrCodecNotRegistered{Command: code}
	}

	if len(auths) > 0 {
		tail := resp.Parameters[consumed:]
		respAuths, err := SplitAuthResponseArea(tail, len(auths))
		if err != nil {
			return resp, nil, fmt.Errorf("tpm2: failed to decode response auth area for %s: %w", code, err)
		}
		for i, b := range bindings {
			flushed := code == CommandFlushContext && len(handles) > 0 && handles[0] == b.session.Handle
			b.session.endUse(respAuths[i].NonceCaller, respAuths[i].SessionAttributes, flushed)
		}
		resp.Auths = respAuths
	}

	return resp, typed, nil
}

// TrackHandle records a transient or session handle created by a
// command so OutstandingHandles can report handles the caller failed to
// flush; Close does not consult it. It is
// advisory bookkeeping, not a correctness requirement.
func (e *Executor) TrackHandle(h Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handles[h] = struct{}{}
}

// UntrackHandle removes a handle from tracking, called after a
// successful FlushContext.
func (e *Executor) UntrackHandle(h Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.handles, h)
}

// OutstandingHandles returns handles created through this executor that
// have not been flushed.
func (e *Executor) OutstandingHandles() []Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Handle, 0, len(e.handles))
	for h := range e.handles {
		out = append(out, h)
	}
	return out
}

// Close closes the underlying transport. It does not flush outstanding
// handles; callers must do that themselves on every exit path (spec §5
// "Resource policy").
func (e *Executor) Close() error {
	return e.tr.Close()
}
