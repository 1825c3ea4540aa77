package tpm2

import (
	"context"
	"fmt"
)

func init() {
	DefaultRegistry.Register(CommandStartup, decodeEmptyResponse)
	DefaultRegistry.Register(CommandSelfTest, decodeEmptyResponse)
	DefaultRegistry.Register(CommandFlushContext, decodeEmptyResponse)
	DefaultRegistry.Register(CommandGetCapability, decodeGetCapabilityResponse)
	DefaultRegistry.Register(CommandGetRandom, decodeGetRandomResponse)
	DefaultRegistry.Register(CommandPCRRead, decodePCRReadResponse)
	DefaultRegistry.Register(CommandCreatePrimary, decodeCreatePrimaryResponse)
	DefaultRegistry.Register(CommandStartAuthSession, decodeStartAuthSessionResponse)
}

func decodeEmptyResponse(handles []Handle, params []byte) (interface{}, int, error) {
	return struct{}{}, 0, nil
}

// StartupType selects TPM2_Startup's clear-vs-state-restore behaviour
// (spec §4.4 Startup).
type StartupType uint16

const (
	StartupClear StartupType = 0x0000
	StartupState StartupType = 0x0001
)

// Startup executes TPM2_Startup. It must be called before any other
// command on a freshly reset TPM; omitting it surfaces as
// TPM_RC_INITIALIZE from the first subsequent command (spec §4.4).
func (e *Executor) Startup(ctx context.Context, typ StartupType) Outcome[struct{}] {
	w := NewWriter(2)
	w.WriteU16(uint16(typ))
	_, typed, err := e.Execute(ctx, CommandStartup, nil, nil, w.Bytes(), nil)
	if err != nil {
		return Outcome[struct{}]{Err: err}
	}
	return Outcome[struct{}]{Value: typed.(struct{})}
}

// SelfTest executes TPM2_SelfTest. fullTest requests all self tests;
// otherwise only tests not yet run are executed. A TPMWarning indicating
// tests are in progress is a normal, non-terminal response (spec §4.4).
func (e *Executor) SelfTest(ctx context.Context, fullTest bool) Outcome[struct{}] {
	w := NewWriter(1)
	if fullTest {
		w.WriteU8(1)
	} else {
		w.WriteU8(0)
	}
	_, typed, err := e.Execute(ctx, CommandSelfTest, nil, nil, w.Bytes(), nil)
	if err != nil {
		return Outcome[struct{}]{Err: err}
	}
	return Outcome[struct{}]{Value: typed.(struct{})}
}

// GetCapabilityResponse is TPM2_GetCapability's output (spec §4.4).
type GetCapabilityResponse struct {
	MoreData bool
	// Raw carries the capability-specific payload undecoded; callers
	// that know the requested Capability decode further (e.g.
	// DecodeTPMProperties for CapabilityTPMProperties).
	Raw []byte
}

// GetCapability executes TPM2_GetCapability. Pagination: if MoreData is
// set, the caller reissues with property = lastReturnedProperty + 1
// (spec §4.4).
func (e *Executor) GetCapability(ctx context.Context, capability CapabilityID, property uint32, propertyCount uint32) Outcome[GetCapabilityResponse] {
	w := NewWriter(12)
	w.WriteU32(uint32(capability))
	w.WriteU32(property)
	w.WriteU32(propertyCount)

	_, typed, err := e.Execute(ctx, CommandGetCapability, nil, nil, w.Bytes(), nil)
	if err != nil {
		return Outcome[GetCapabilityResponse]{Err: err}
	}
	return Outcome[GetCapabilityResponse]{Value: typed.(GetCapabilityResponse)}
}

func decodeGetCapabilityResponse(handles []Handle, params []byte) (interface{}, int, error) {
	r := NewReader(params)
	more, err := r.ReadU8()
	if err != nil {
		return nil, 0, err
	}
	// The remaining bytes are the TPMU_CAPABILITIES union payload, whose
	// shape depends on the capability selector the caller sent; this
	// registry-level decoder doesn't have that context (spec §4.4 notes
	// the selector "chooses the payload variant"), so it is handed back
	// raw for the caller to interpret with the capability-specific
	// decode helpers below.
	rest := params[r.Consumed():]
	return GetCapabilityResponse{MoreData: more != 0, Raw: rest}, len(params), nil
}

// TaggedProperty is one TPM_PT/value pair from a CapabilityTPMProperties
// response.
type TaggedProperty struct {
	Property uint32
	Value    uint32
}

// DecodeTPMProperties decodes a GetCapabilityResponse.Raw payload that
// was requested with CapabilityTPMProperties.
func DecodeTPMProperties(raw []byte) ([]TaggedProperty, error) {
	r := NewReader(raw)
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	out := make([]TaggedProperty, 0, count)
	for i := uint32(0); i < count; i++ {
		prop, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		val, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		out = append(out, TaggedProperty{Property: prop, Value: val})
	}
	return out, nil
}

// GetRandom executes TPM2_GetRandom. The TPM may return fewer bytes than
// requested; GetRandomFull loops to accumulate the full amount (spec
// §4.4).
func (e *Executor) GetRandom(ctx context.Context, bytesRequested uint16) Outcome[[]byte] {
	w := NewWriter(2)
	w.WriteU16(bytesRequested)
	_, typed, err := e.Execute(ctx, CommandGetRandom, nil, nil, w.Bytes(), nil)
	if err != nil {
		return Outcome[[]byte]{Err: err}
	}
	return Outcome[[]byte]{Value: typed.([]byte)}
}

// GetRandomFull calls GetRandom repeatedly until total bytes have been
// accumulated, per spec §4.4's looping requirement.
func (e *Executor) GetRandomFull(ctx context.Context, total int) ([]byte, error) {
	out := make([]byte, 0, total)
	for len(out) < total {
		want := total - len(out)
		if want > 0xFFFF {
			want = 0xFFFF
		}
		res := e.GetRandom(ctx, uint16(want))
		if !res.Ok() {
			return nil, res.Err
		}
		if len(res.Value) == 0 {
			return nil, fmt.Errorf("tpm2: GetRandom returned zero bytes with %d still requested", want)
		}
		out = append(out, res.Value...)
	}
	return out, nil
}

func decodeGetRandomResponse(handles []Handle, params []byte) (interface{}, int, error) {
	r := NewReader(params)
	b, err := r.ReadTPM2B()
	if err != nil {
		return nil, 0, err
	}
	return append([]byte(nil), b...), r.Consumed(), nil
}

// PCRReadResponse is TPM2_PCR_Read's output (spec §4.4).
type PCRReadResponse struct {
	PCRUpdateCounter uint32
	PCRSelectionOut  PCRSelectionList
	PCRValues        [][]byte
}

// PCRRead executes TPM2_PCR_Read. Not all requested PCRs are necessarily
// returned in one call; PCRSelectionOut reports which were, and the
// caller re-requests the remainder until the requested set is empty
// (spec §4.4).
func (e *Executor) PCRRead(ctx context.Context, selection PCRSelectionList) Outcome[PCRReadResponse] {
	w := NewWriter(16)
	if err := selection.encode(w); err != nil {
		return Outcome[PCRReadResponse]{Err: err}
	}
	_, typed, err := e.Execute(ctx, CommandPCRRead, nil, nil, w.Bytes(), nil)
	if err != nil {
		return Outcome[PCRReadResponse]{Err: err}
	}
	return Outcome[PCRReadResponse]{Value: typed.(PCRReadResponse)}
}

func decodePCRReadResponse(handles []Handle, params []byte) (interface{}, int, error) {
	r := NewReader(params)
	counter, err := r.ReadU32()
	if err != nil {
		return nil, 0, err
	}
	sel, err := decodePCRSelectionList(r)
	if err != nil {
		return nil, 0, err
	}
	count, err := r.ReadU32()
	if err != nil {
		return nil, 0, err
	}
	values := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		v, err := r.ReadTPM2B()
		if err != nil {
			return nil, 0, err
		}
		values = append(values, append([]byte(nil), v...))
	}
	return PCRReadResponse{PCRUpdateCounter: counter, PCRSelectionOut: sel, PCRValues: values}, r.Consumed(), nil
}

// CreatePrimaryResponse is TPM2_CreatePrimary's output (spec §4.4).
type CreatePrimaryResponse struct {
	ObjectHandle Handle
	OutPublic    *Public
	CreationData *CreationData
	CreationHash []byte
	Name         Name
}

// CreatePrimary executes TPM2_CreatePrimary in the given hierarchy.
// primaryObjectAuth is the password authorizing use of hierarchy and may
// be nil for a plaintext-empty password. On success the returned handle is a
// transient object that the caller must flush on every exit path
// (spec §4.4, §5 "Resource policy").
func (e *Executor) CreatePrimary(ctx context.Context, hierarchy Handle, sensitive *SensitiveCreate, template *Public, outsideInfo []byte, creationPCR PCRSelectionList, primaryObjectAuth []byte) Outcome[CreatePrimaryResponse] {
	if sensitive == nil {
		sensitive = &SensitiveCreate{}
	}

	w := NewWriter(128)
	if err := sensitive.encode(w); err != nil {
		return Outcome[CreatePrimaryResponse]{Err: err}
	}
	pubW := NewWriter(64)
	if err := template.encode(pubW); err != nil {
		return Outcome[CreatePrimaryResponse]{Err: err}
	}
	if err := w.WriteTPM2B(pubW.Bytes()); err != nil {
		return Outcome[CreatePrimaryResponse]{Err: err}
	}
	if err := w.WriteTPM2B(outsideInfo); err != nil {
		return Outcome[CreatePrimaryResponse]{Err: err}
	}
	if err := creationPCR.encode(w); err != nil {
		return Outcome[CreatePrimaryResponse]{Err: err}
	}

	s := NewSession(HandlePasswordSession, SessionTypeHMAC, HashAlgorithmSHA256, nil)
	s.SetAuthValue(primaryObjectAuth)
	bindings := []sessionBinding{{session: s, attrs: 0}}

	_, typed, err := e.Execute(ctx, CommandCreatePrimary, []Handle{hierarchy}, nil, w.Bytes(), bindings)
	if err != nil {
		return Outcome[CreatePrimaryResponse]{Err: err}
	}
	resp := typed.(CreatePrimaryResponse)
	e.TrackHandle(resp.ObjectHandle)
	return Outcome[CreatePrimaryResponse]{Value: resp}
}

func decodeCreatePrimaryResponse(handles []Handle, params []byte) (interface{}, int, error) {
	r := NewReader(params)
	handleVal, err := r.ReadU32()
	if err != nil {
		return nil, 0, err
	}

	pubBytes, err := r.ReadTPM2B()
	if err != nil {
		return nil, 0, err
	}
	pub, err := decodePublic(pubBytes)
	if err != nil {
		return nil, 0, err
	}

	creationDataBytes, err := r.ReadTPM2B()
	if err != nil {
		return nil, 0, err
	}
	creationData, err := decodeCreationData(creationDataBytes)
	if err != nil {
		return nil, 0, err
	}

	creationHash, err := r.ReadTPM2B()
	if err != nil {
		return nil, 0, err
	}

	// TkCreation: hierarchy (u32) + digest (TPM2B), tag omitted at this
	// layer since it is constant for creation tickets.
	tkHierarchy, err := r.ReadU32()
	if err != nil {
		return nil, 0, err
	}
	tkDigest, err := r.ReadTPM2B()
	if err != nil {
		return nil, 0, err
	}
	_ = TkCreation{Hierarchy: Handle(tkHierarchy), Digest: append([]byte(nil), tkDigest...)}

	name, err := r.ReadTPM2B()
	if err != nil {
		return nil, 0, err
	}

	return CreatePrimaryResponse{
		ObjectHandle: Handle(handleVal),
		OutPublic:    pub,
		CreationData: creationData,
		CreationHash: append([]byte(nil), creationHash...),
		Name:         Name(append([]byte(nil), name...)),
	}, r.Consumed(), nil
}

func decodePublic(raw []byte) (*Public, error) {
	r := NewReader(raw)
	typ, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	nameAlg, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	attrs, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	authPolicy, err := r.ReadTPM2B()
	if err != nil {
		return nil, err
	}
	p := &Public{Type: ObjectTypeID(typ), NameAlg: HashAlgorithmID(nameAlg), Attrs: ObjectAttributes(attrs), AuthPolicy: append([]byte(nil), authPolicy...)}
	switch p.Type {
	case ObjectTypeRSA:
		bits, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		exp, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		p.Params.RSABits = bits
		p.Params.RSAExponent = exp
	case ObjectTypeECC:
		curve, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		p.Params.ECCCurve = curve
	}
	unique, err := r.ReadTPM2B()
	if err != nil {
		return nil, err
	}
	p.Unique = append([]byte(nil), unique...)
	return p, nil
}

func decodeCreationData(raw []byte) (*CreationData, error) {
	r := NewReader(raw)
	sel, err := decodePCRSelectionList(r)
	if err != nil {
		return nil, err
	}
	pcrDigest, err := r.ReadTPM2B()
	if err != nil {
		return nil, err
	}
	// Skip locality and parentNameAlg/parentName/parentQualifiedName
	// fields not surfaced at this layer's abstraction (spec §1 Non-goals:
	// "only the protocol framework plus representative commands").
	outsideInfo, err := r.ReadTPM2B()
	if err != nil {
		return nil, err
	}
	return &CreationData{PCRSelect: sel, PCRDigest: append([]byte(nil), pcrDigest...), OutsideInfo: append([]byte(nil), outsideInfo...)}, nil
}

// SessionKind selects an authorization session's TPM_SE type byte (spec
// §3 "TPM session"; §4.4 StartAuthSession).
type SessionKind uint8

const (
	SessionKindHMAC   SessionKind = 0x00
	SessionKindPolicy SessionKind = 0x01
	SessionKindTrial  SessionKind = 0x03
)

// StartAuthSessionResponse is TPM2_StartAuthSession's output.
type StartAuthSessionResponse struct {
	SessionHandle Handle
	NonceTPM      []byte
}

// StartAuthSession executes TPM2_StartAuthSession. tpmKey/bind are
// HandleNull for the minimal unbound/unsalted variant (spec §4.4).
func (e *Executor) StartAuthSession(ctx context.Context, tpmKey, bind Handle, nonceCaller []byte, encryptedSalt []byte, kind SessionKind, authHash HashAlgorithmID) Outcome[StartAuthSessionResponse] {
	w := NewWriter(32)
	if err := w.WriteTPM2B(nonceCaller); err != nil {
		return Outcome[StartAuthSessionResponse]{Err: err}
	}
	if err := w.WriteTPM2B(encryptedSalt); err != nil {
		return Outcome[StartAuthSessionResponse]{Err: err}
	}
	w.WriteU8(uint8(kind))
	// Symmetric algorithm (TPM_ALG_NULL, i.e. no parameter encryption)
	// plus the session hash algorithm.
	w.WriteU16(uint16(HashAlgorithmNull))
	w.WriteU16(uint16(authHash))

	_, typed, err := e.Execute(ctx, CommandStartAuthSession, []Handle{tpmKey, bind}, nil, w.Bytes(), nil)
	if err != nil {
		return Outcome[StartAuthSessionResponse]{Err: err}
	}
	return Outcome[StartAuthSessionResponse]{Value: typed.(StartAuthSessionResponse)}
}

func decodeStartAuthSessionResponse(handles []Handle, params []byte) (interface{}, int, error) {
	r := NewReader(params)
	handleVal, err := r.ReadU32()
	if err != nil {
		return nil, 0, err
	}
	nonce, err := r.ReadTPM2B()
	if err != nil {
		return nil, 0, err
	}
	return StartAuthSessionResponse{SessionHandle: Handle(handleVal), NonceTPM: append([]byte(nil), nonce...)}, r.Consumed(), nil
}

// FlushContext executes TPM2_FlushContext. It is idempotent at the
// caller level in the sense described by spec §4.4: flushing an
// already-flushed handle surfaces as a *TPMHandleError with
// ErrorCode for TPM_RC_HANDLE, without side effects.
func (e *Executor) FlushContext(ctx context.Context, handle Handle) Outcome[struct{}] {
	_, typed, err := e.Execute(ctx, CommandFlushContext, []Handle{handle}, nil, nil, nil)
	if err != nil {
		return Outcome[struct{}]{Err: err}
	}
	e.UntrackHandle(handle)
	return Outcome[struct{}]{Value: typed.(struct{})}
}
