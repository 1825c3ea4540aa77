package tpm2

import "context"

// Transport is the abstract contract a platform binding (Windows TBS,
// Linux character device, TCP simulator) implements to carry encoded
// command bytes to a TPM and return the raw response bytes (spec §6
// "TPM transport contract"). Implementations are otherwise opaque to
// this package.
type Transport interface {
	// Submit sends request and returns the complete raw response,
	// including its header. A non-nil error here is always a
	// TransportError-class failure, never a TPM protocol error (those
	// are encoded in the response bytes themselves per spec §7).
	Submit(ctx context.Context, request []byte) ([]byte, error)

	// Close releases the underlying connection. Submit must not be
	// called after Close.
	Close() error
}
