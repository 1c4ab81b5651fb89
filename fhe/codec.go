// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhe

import (
	"bytes"
	"encoding"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/luxfi/lattice/v7/core/rgsw/blindrot"
	"github.com/luxfi/lattice/v7/core/rlwe"
)

// ErrMalformed is returned for any input the codec cannot decode into a
// well-formed object.
var ErrMalformed = errors.New("fhe: malformed encoding")

const codecVersion = 1

// Kind tags the object carried by an envelope.
type Kind uint8

const (
	KindInteger Kind = iota + 1
	KindEvaluationKey
	KindPrivateKey
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindEvaluationKey:
		return "evaluation-key"
	case KindPrivateKey:
		return "private-key"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// envelope is the binary wire form shared by every object.
type envelope struct {
	_        struct{} `cbor:",toarray"`
	Version  uint
	Kind     Kind
	Ceremony []byte
	Params   string
	Body     []byte
}

var decMode, _ = cbor.DecOptions{
	MaxArrayElements: 1 << 16,
	MaxNestedLevels:  8,
}.DecMode()

func seal(kind Kind, ceremony uuid.UUID, params Parameters, body []byte) ([]byte, error) {
	if params.Name() == "" {
		return nil, fmt.Errorf("encode %s: parameters have no registered name", kind)
	}
	return cbor.Marshal(envelope{
		Version:  codecVersion,
		Kind:     kind,
		Ceremony: ceremony[:],
		Params:   params.Name(),
		Body:     body,
	})
}

func open(data []byte, kind Kind) (env envelope, ceremony uuid.UUID, params Parameters, err error) {
	if err = decMode.Unmarshal(data, &env); err != nil {
		return env, ceremony, params, fmt.Errorf("%w: envelope: %v", ErrMalformed, err)
	}
	if env.Version != codecVersion {
		return env, ceremony, params, fmt.Errorf("%w: version %d", ErrMalformed, env.Version)
	}
	if env.Kind != kind {
		return env, ceremony, params, fmt.Errorf("%w: expected %s, got %s", ErrMalformed, kind, env.Kind)
	}
	if ceremony, err = uuid.FromBytes(env.Ceremony); err != nil {
		return env, ceremony, params, fmt.Errorf("%w: ceremony: %v", ErrMalformed, err)
	}
	if params, err = ParametersByName(env.Params); err != nil {
		return env, ceremony, params, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return env, ceremony, params, nil
}

// recoverMalformed turns a panic inside the lattice decoders into ErrMalformed.
func recoverMalformed(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrMalformed, r)
	}
}

// EncodeHex returns the lower-case hex form of the binary encoding of v.
func EncodeHex(v encoding.BinaryMarshaler) (string, error) {
	data, err := v.MarshalBinary()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(data), nil
}

// DecodeHex decodes s into v.
func DecodeHex(s string, v encoding.BinaryUnmarshaler) error {
	data, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("%w: hex: %v", ErrMalformed, err)
	}
	return v.UnmarshalBinary(data)
}

// MarshalBinary encodes the integer.
func (x *Integer) MarshalBinary() ([]byte, error) {
	if err := x.checkWidth(); err != nil {
		return nil, err
	}

	var err error
	bits := make([][]byte, len(x.bits))
	for i, ct := range x.bits {
		if bits[i], err = ct.Ciphertext.MarshalBinary(); err != nil {
			return nil, fmt.Errorf("marshal bit %d: %w", i, err)
		}
	}
	body, err := cbor.Marshal(bits)
	if err != nil {
		return nil, fmt.Errorf("marshal integer: %w", err)
	}
	return seal(KindInteger, x.Ceremony, x.params, body)
}

// UnmarshalBinary decodes an integer, validating every bit against the
// parameter set named in the envelope.
func (x *Integer) UnmarshalBinary(data []byte) (err error) {
	defer recoverMalformed(&err)

	env, ceremony, params, err := open(data, KindInteger)
	if err != nil {
		return err
	}

	var raw [][]byte
	if err := decMode.Unmarshal(env.Body, &raw); err != nil {
		return fmt.Errorf("%w: integer body: %v", ErrMalformed, err)
	}
	if len(raw) != IntegerBits {
		return fmt.Errorf("%w: %d bits", ErrMalformed, len(raw))
	}

	bits := make([]*Ciphertext, len(raw))
	for i, b := range raw {
		ct := new(rlwe.Ciphertext)
		if err := ct.UnmarshalBinary(b); err != nil {
			return fmt.Errorf("%w: bit %d: %v", ErrMalformed, i, err)
		}
		if err := validCiphertext(params, ct); err != nil {
			return fmt.Errorf("bit %d: %w", i, err)
		}
		bits[i] = &Ciphertext{Ciphertext: ct}
	}

	x.Ceremony = ceremony
	x.params = params
	x.bits = bits
	return nil
}

func validCiphertext(params Parameters, ct *rlwe.Ciphertext) error {
	if ct.MetaData == nil || !ct.IsNTT {
		return fmt.Errorf("%w: ciphertext not in NTT domain", ErrMalformed)
	}
	if ct.Degree() != 1 || ct.Level() != 0 {
		return fmt.Errorf("%w: ciphertext degree %d level %d", ErrMalformed, ct.Degree(), ct.Level())
	}
	q := params.Q()
	for _, p := range ct.Value {
		if p.N() != params.N() {
			return fmt.Errorf("%w: ring degree %d", ErrMalformed, p.N())
		}
		for _, c := range p.Coeffs[0] {
			if c >= q {
				return fmt.Errorf("%w: coefficient out of range", ErrMalformed)
			}
		}
	}
	return nil
}

// MarshalBinary encodes the private key.
func (k *PrivateKey) MarshalBinary() ([]byte, error) {
	body, err := k.sk.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	return seal(KindPrivateKey, k.Ceremony, k.params, body)
}

// UnmarshalBinary decodes a private key.
func (k *PrivateKey) UnmarshalBinary(data []byte) (err error) {
	defer recoverMalformed(&err)

	env, ceremony, params, err := open(data, KindPrivateKey)
	if err != nil {
		return err
	}

	sk := new(rlwe.SecretKey)
	if err := sk.UnmarshalBinary(env.Body); err != nil {
		return fmt.Errorf("%w: private key: %v", ErrMalformed, err)
	}
	if sk.Value.Q.N() != params.N() {
		return fmt.Errorf("%w: private key degree %d", ErrMalformed, sk.Value.Q.N())
	}

	k.Ceremony = ceremony
	k.params = params
	k.sk = sk
	return nil
}

// MarshalBinary encodes the evaluation key. The blind rotation key set is
// gob encoded; its RGSW and Galois keys provide their own binary forms.
func (k *EvaluationKey) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(k.brk); err != nil {
		return nil, fmt.Errorf("marshal blind rotation keys: %w", err)
	}
	return seal(KindEvaluationKey, k.Ceremony, k.params, buf.Bytes())
}

// UnmarshalBinary decodes an evaluation key.
func (k *EvaluationKey) UnmarshalBinary(data []byte) (err error) {
	defer recoverMalformed(&err)

	env, ceremony, params, err := open(data, KindEvaluationKey)
	if err != nil {
		return err
	}

	var brk blindrot.MemBlindRotationEvaluationKeySet
	if err := gob.NewDecoder(bytes.NewReader(env.Body)).Decode(&brk); err != nil {
		return fmt.Errorf("%w: blind rotation keys: %v", ErrMalformed, err)
	}
	if len(brk.BlindRotationKeys) != params.N() {
		return fmt.Errorf("%w: %d blind rotation keys", ErrMalformed, len(brk.BlindRotationKeys))
	}
	for i, key := range brk.BlindRotationKeys {
		if key == nil {
			return fmt.Errorf("%w: blind rotation key %d missing", ErrMalformed, i)
		}
	}

	k.Ceremony = ceremony
	k.params = params
	k.brk = brk
	return nil
}
