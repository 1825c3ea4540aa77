package tpm2

import "fmt"

// AuthArea is the per-session authorization structure carried in the
// command (and, after success, the response) (spec §4.3 "Authorization
// structure"). For a password authorization, SessionHandle is
// HandlePasswordSession, NonceCaller is empty, SessionAttributes is
// zero, and HMAC carries the plaintext authorization value.
type AuthArea struct {
	SessionHandle     Handle
	NonceCaller       []byte
	SessionAttributes SessionAttributes
	HMAC              []byte
}

func (a AuthArea) encode(w *Writer) error {
	w.WriteU32(uint32(a.SessionHandle))
	if err := w.WriteTPM2B(a.NonceCaller); err != nil {
		return err
	}
	w.WriteU8(byte(a.SessionAttributes))
	return w.WriteTPM2B(a.HMAC)
}

func decodeAuthArea(r *Reader) (AuthArea, error) {
	var a AuthArea
	h, err := r.ReadU32()
	if err != nil {
		return a, err
	}
	a.SessionHandle = Handle(h)
	nonce, err := r.ReadTPM2B()
	if err != nil {
		return a, err
	}
	a.NonceCaller = nonce
	attrs, err := r.ReadU8()
	if err != nil {
		return a, err
	}
	a.SessionAttributes = SessionAttributes(attrs)
	hmacVal, err := r.ReadTPM2B()
	if err != nil {
		return a, err
	}
	a.HMAC = hmacVal
	return a, nil
}

// Command is a fully-populated TPM command descriptor (spec §3
// "Command descriptor", §4.3 wire layout table).
type Command struct {
	CommandCode CommandCode
	Handles     []Handle
	Auths       []AuthArea // empty iff Tag should be TagNoSessions
	Parameters  []byte
}

// Tag returns TagSessions iff the command carries any authorizations,
// else TagNoSessions (spec §3 Command descriptor invariant).
func (c *Command) Tag() StructTag {
	if len(c.Auths) > 0 {
		return TagSessions
	}
	return TagNoSessions
}

// Encode serializes the command to its wire form. commandSize is
// computed last, as required by the invariant in spec §3: "command_size
// = 10 + serialized_handles + authorization_area_size + parameters_size".
func (c *Command) Encode() ([]byte, error) {
	body := NewWriter(64 + len(c.Parameters))
	for _, h := range c.Handles {
		body.WriteU32(uint32(h))
	}

	if len(c.Auths) > 0 {
		authBytes := NewWriter(64)
		for _, a := range c.Auths {
			if err := a.encode(authBytes); err != nil {
				return nil, fmt.Errorf("tpm2: failed to encode auth area: %w", err)
			}
		}
		body.WriteU32(uint32(authBytes.Written()))
		body.WriteBytes(authBytes.Bytes())
	}

	body.WriteBytes(c.Parameters)

	const headerSize = 10 // tag(2) + commandSize(4) + commandCode(4)
	total := NewWriter(headerSize + body.Written())
	total.WriteU16(uint16(c.Tag()))
	total.WriteU32(uint32(headerSize + body.Written()))
	total.WriteU32(uint32(c.CommandCode))
	total.WriteBytes(body.Bytes())

	return total.Bytes(), nil
}

// Response is a decoded TPM response descriptor (spec §3 "Response
// descriptor").
type Response struct {
	Tag          StructTag
	ResponseCode ResponseCode
	Parameters   []byte
	Auths        []AuthArea // only present when the request carried sessions and ResponseCode == Success
}

// DecodeResponse parses raw into a Response. sessionsRequested must be
// true iff the originating command had Tag() == TagSessions; this
// mirrors spec §4.3 "Response framing": the authorization-response area
// is only present "when sessions were present in the request *and* the
// response is success".
func DecodeResponse(raw []byte, sessionsRequested bool, numAuths int) (*Response, error) {
	r := NewReader(raw)

	tagVal, err := r.ReadU16()
	if err != nil {
		return nil, fmt.Errorf("tpm2: failed to read response tag: %w", err)
	}
	size, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("tpm2: failed to read response size: %w", err)
	}
	if int(size) != len(raw) {
		return nil, fmt.Errorf("tpm2: response size field %d does not match received length %d", size, len(raw))
	}
	codeVal, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("tpm2: failed to read response code: %w", err)
	}

	resp := &Response{Tag: StructTag(tagVal), ResponseCode: ResponseCode(codeVal)}

	if resp.ResponseCode != Success {
		// Per spec §3 "Response descriptor" invariant: only on success is
		// a payload (parameters, or an authorization-response area)
		// present.
		return resp, nil
	}

	if !sessionsRequested || numAuths == 0 {
		resp.Parameters = r.buf[r.pos:]
		return resp, nil
	}

	// Parameters are followed by the authorization-response area, but the
	// parameter area's own length isn't separately framed at this
	// abstraction level (unlike the command side, whose auth area is
	// length-prefixed): the caller-specified number of authorizations
	// tells us where to split. Decode from the tail backwards by
	// decoding all of the remaining auth entries greedily is not
	// possible without their boundary, so a typed response decoder
	// registered in the command registry is expected to consume its own
	// parameter bytes first and report how many bytes it used; see
	// executor.go's use of DecodeResponse for the split performed there.
	resp.Parameters = r.buf[r.pos:]
	return resp, nil
}

// SplitAuthResponseArea decodes numAuths AuthArea entries from the tail
// of a response's byte region, once the parameter decoder has reported
// how many bytes it consumed for typed parameters. This two-step split
// (decode parameters against a known decoder -> remainder is auths)
// mirrors the asymmetry already present on the command side, where the
// auth area is between handles and parameters and is self-length-
// prefixed; the response side omits that prefix so the split must be
// driven by the parameter decoder instead.
func SplitAuthResponseArea(remainder []byte, numAuths int) ([]AuthArea, error) {
	r := NewReader(remainder)
	auths := make([]AuthArea, 0, numAuths)
	for i := 0; i < numAuths; i++ {
		// Response session area per-entry is {nonceTPM TPM2B,
		// sessionAttributes byte, acknowledgment TPM2B}, the response-side
		// mirror of the command AuthArea encoding.
		nonce, err := r.ReadTPM2B()
		if err != nil {
			return nil, fmt.Errorf("tpm2: failed to decode response auth %d nonce: %w", i, err)
		}
		attrs, err := r.ReadU8()
		if err != nil {
			return nil, fmt.Errorf("tpm2: failed to decode response auth %d attributes: %w", i, err)
		}
		hmacVal, err := r.ReadTPM2B()
		if err != nil {
			return nil, fmt.Errorf("tpm2: failed to decode response auth %d hmac: %w", i, err)
		}
		auths = append(auths, AuthArea{NonceCaller: nonce, SessionAttributes: SessionAttributes(attrs), HMAC: hmacVal})
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("tpm2: %d trailing bytes after response auth area", r.Remaining())
	}
	return auths, nil
}
