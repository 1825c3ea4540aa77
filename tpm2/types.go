package tpm2

import (
	"fmt"
	"math"
)

// Name is the TPM's content-derived identifier for an object, computed
// deterministically from its public area (spec §4.4 CreatePrimary:
// "derived deterministically from the public area by a hash-of-
// canonical-encoding rule").
type Name []byte

// PCRSelect is the list of PCR indices selected within one bank,
// adapted from types_structures.go's PCRSelect/ToBitmap pair.
type PCRSelect []int

// ToBitmap converts the selected indices into the TPM's little-endian
// bitmap-per-octet wire form, padded to at least minSize octets.
func (d PCRSelect) ToBitmap(minSize uint8) ([]byte, error) {
	if minSize == 0 {
		minSize = 3
	}
	out := make([]byte, minSize)
	for _, i := range d {
		if i < 0 {
			return nil, fmt.Errorf("tpm2: invalid PCR index %d (< 0)", i)
		}
		octet := i / 8
		if octet >= math.MaxUint8 {
			return nil, fmt.Errorf("tpm2: invalid PCR index %d (>= 2040)", i)
		}
		for octet >= len(out) {
			out = append(out, 0)
		}
		out[octet] |= 1 << uint(i%8)
	}
	return out, nil
}

// PCRSelectFromBitmap is the inverse of ToBitmap.
func PCRSelectFromBitmap(bmp []byte) PCRSelect {
	var out PCRSelect
	for octet, b := range bmp {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<uint(bit)) != 0 {
				out = append(out, octet*8+bit)
			}
		}
	}
	return out
}

// PCRSelection corresponds to TPMS_PCR_SELECTION: a hash bank plus the
// PCR indices selected within it.
type PCRSelection struct {
	Hash   HashAlgorithmID
	Select PCRSelect
}

func (s PCRSelection) encode(w *Writer) error {
	w.WriteU16(uint16(s.Hash))
	bmp, err := s.Select.ToBitmap(0)
	if err != nil {
		return err
	}
	w.WriteU8(uint8(len(bmp)))
	w.WriteBytes(bmp)
	return nil
}

func decodePCRSelection(r *Reader) (PCRSelection, error) {
	var s PCRSelection
	alg, err := r.ReadU16()
	if err != nil {
		return s, err
	}
	s.Hash = HashAlgorithmID(alg)
	sizeOfSelect, err := r.ReadU8()
	if err != nil {
		return s, err
	}
	bmp, err := r.ReadBytes(int(sizeOfSelect))
	if err != nil {
		return s, err
	}
	s.Select = PCRSelectFromBitmap(bmp)
	return s, nil
}

// PCRSelectionList corresponds to TPML_PCR_SELECTION.
type PCRSelectionList []PCRSelection

func (l PCRSelectionList) encode(w *Writer) error {
	w.WriteU32(uint32(len(l)))
	for _, s := range l {
		if err := s.encode(w); err != nil {
			return err
		}
	}
	return nil
}

func decodePCRSelectionList(r *Reader) (PCRSelectionList, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	out := make(PCRSelectionList, 0, count)
	for i := uint32(0); i < count; i++ {
		s, err := decodePCRSelection(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ObjectTypeID identifies a public-area algorithm (TPM_ALG_ID subset
// relevant to object templates).
type ObjectTypeID uint16

const (
	ObjectTypeRSA       ObjectTypeID = 0x0001
	ObjectTypeKeyedHash ObjectTypeID = 0x0008
	ObjectTypeECC       ObjectTypeID = 0x0023
	ObjectTypeSymCipher ObjectTypeID = 0x0025
)

// ObjectAttributes is the TPMA_OBJECT bitmask controlling an object's
// usage and authorization rules.
type ObjectAttributes uint32

const (
	AttrFixedTPM             ObjectAttributes = 1 << 1
	AttrFixedParent          ObjectAttributes = 1 << 4
	AttrSensitiveDataOrigin  ObjectAttributes = 1 << 5
	AttrUserWithAuth         ObjectAttributes = 1 << 6
	AttrAdminWithPolicy      ObjectAttributes = 1 << 7
	AttrNoDA                 ObjectAttributes = 1 << 10
	AttrRestricted           ObjectAttributes = 1 << 16
	AttrDecryptObj           ObjectAttributes = 1 << 17
	AttrSignObj              ObjectAttributes = 1 << 18
)

// PublicParams carries the type-specific parameters of a public area.
// Only the fields relevant to the Type are meaningful, mirroring the
// TPMU_PUBLIC_PARMS union without reproducing the full mu-tag union
// machinery (out of scope per spec §1 Non-goals).
type PublicParams struct {
	RSABits     uint16
	RSAExponent uint32
	ECCCurve    uint16
}

// Public corresponds to TPMT_PUBLIC: the complete public area of a TPM
// object, the shared input to CreatePrimary (spec §4.4) and to Name
// computation.
type Public struct {
	Type       ObjectTypeID
	NameAlg    HashAlgorithmID
	Attrs      ObjectAttributes
	AuthPolicy []byte
	Params     PublicParams
	Unique     []byte
}

// encode serializes the public area in the fixed field order TPM2_CreatePrimary
// expects, used both to build the command parameter area and to compute
// Name.
func (p *Public) encode(w *Writer) error {
	w.WriteU16(uint16(p.Type))
	w.WriteU16(uint16(p.NameAlg))
	w.WriteU32(uint32(p.Attrs))
	if err := w.WriteTPM2B(p.AuthPolicy); err != nil {
		return err
	}
	switch p.Type {
	case ObjectTypeRSA:
		w.WriteU16(p.Params.RSABits)
		w.WriteU32(p.Params.RSAExponent)
	case ObjectTypeECC:
		w.WriteU16(p.Params.ECCCurve)
	}
	return w.WriteTPM2B(p.Unique)
}

// ComputeName computes the object Name: nameAlg concatenated with the
// digest of the canonical public-area encoding, per TPM 2.0 Part 1's
// name computation rule (spec §4.4 CreatePrimary: "given identical
// inputs including hierarchy seed, the TPM returns identical names").
func (p *Public) ComputeName() (Name, error) {
	w := NewWriter(64)
	if err := p.encode(w); err != nil {
		return nil, err
	}
	h := NewHash(p.NameAlg)
	h.Write(w.Bytes())
	sum := h.Sum(nil)

	nameW := NewWriter(2 + len(sum))
	nameW.WriteU16(uint16(p.NameAlg))
	nameW.WriteBytes(sum)
	return Name(nameW.Bytes()), nil
}

// SensitiveCreate corresponds to TPMS_SENSITIVE_CREATE: caller-supplied
// seed material for object creation.
type SensitiveCreate struct {
	UserAuth []byte
	Data     []byte
}

func (s *SensitiveCreate) encode(w *Writer) error {
	inner := NewWriter(16)
	if err := inner.WriteTPM2B(s.UserAuth); err != nil {
		return err
	}
	if err := inner.WriteTPM2B(s.Data); err != nil {
		return err
	}
	return w.WriteTPM2B(inner.Bytes())
}

// CreationData corresponds to TPMS_CREATION_DATA, returned by
// CreatePrimary to describe the PCR state at creation time.
type CreationData struct {
	PCRSelect   PCRSelectionList
	PCRDigest   []byte
	OutsideInfo []byte
}

// TkCreation corresponds to TPMT_TK_CREATION, proving the association
// between a created object and its CreationData.
type TkCreation struct {
	Hierarchy Handle
	Digest    []byte
}

// CapabilityID selects the payload variant returned by GetCapability
// (spec §4.4).
type CapabilityID uint32

const (
	CapabilityAlgs           CapabilityID = 0
	CapabilityHandles        CapabilityID = 1
	CapabilityCommands       CapabilityID = 2
	CapabilityPPCommands     CapabilityID = 3
	CapabilityAuditCommands  CapabilityID = 4
	CapabilityPCRs           CapabilityID = 5
	CapabilityTPMProperties  CapabilityID = 6
	CapabilityPCRProperties  CapabilityID = 7
	CapabilityECCCurves      CapabilityID = 8
	CapabilityAuthPolicies   CapabilityID = 9
)
