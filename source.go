package aaline

import (
	"errors"
	"fmt"
)

// ErrInvalidTransport is returned for a Transport value other than
// TransportUniform and TransportPush.
var ErrInvalidTransport = errors.New("aaline: unknown transport")

// Transport identifies how the parameter block reaches the vertex stage.
type Transport uint8

const (
	// TransportUniform delivers the block through a bound uniform buffer
	// at set 0, binding 0.
	TransportUniform Transport = iota

	// TransportPush delivers the block as inline push data.
	TransportPush
)

// String returns the transport name.
func (t Transport) String() string {
	switch t {
	case TransportUniform:
		return "uniform"
	case TransportPush:
		return "push"
	default:
		return fmt.Sprintf("Transport(%d)", uint8(t))
	}
}

// Uniform binding slot of the parameter block.
const (
	UniformSet     = 0
	UniformBinding = 0
)

// ParamSource is the capability the vertex stage reads its parameter block
// from. Implementations only differ in how the bytes are delivered; the
// stage decodes them identically.
type ParamSource interface {
	// Transport reports the delivery mechanism.
	Transport() Transport

	// Block returns the packed parameter block. It must not be modified.
	Block() []byte
}

// UniformBuffer is a parameter source backed by a uniform buffer bound at
// UniformSet / UniformBinding. The buffer is padded to the 16-byte struct
// alignment uniform bindings require.
type UniformBuffer struct {
	data [UniformBufferSize]byte
}

// UniformBufferSize is the bound size of the uniform buffer: ParamsSize
// rounded up to a multiple of 16.
const UniformBufferSize = (ParamsSize + 15) &^ 15

// NewUniformBuffer packs p into a uniform buffer.
func NewUniformBuffer(p DrawParams) *UniformBuffer {
	u := &UniformBuffer{}
	p.put(u.data[:])
	return u
}

// Transport implements ParamSource.
func (u *UniformBuffer) Transport() Transport { return TransportUniform }

// Block implements ParamSource. The returned slice includes the padding.
func (u *UniformBuffer) Block() []byte { return u.data[:] }

// Binding returns the descriptor set and binding the buffer is bound at.
func (u *UniformBuffer) Binding() (set, binding uint32) {
	return UniformSet, UniformBinding
}

// PushConstants is a parameter source delivered as inline push data.
type PushConstants struct {
	data [ParamsSize]byte
}

// NewPushConstants packs p into a push data block.
func NewPushConstants(p DrawParams) *PushConstants {
	pc := &PushConstants{}
	p.put(pc.data[:])
	return pc
}

// Transport implements ParamSource.
func (pc *PushConstants) Transport() Transport { return TransportPush }

// Block implements ParamSource.
func (pc *PushConstants) Block() []byte { return pc.data[:] }

// NewParamSource packs p for the given transport.
func NewParamSource(t Transport, p DrawParams) (ParamSource, error) {
	switch t {
	case TransportUniform:
		return NewUniformBuffer(p), nil
	case TransportPush:
		return NewPushConstants(p), nil
	default:
		return nil, fmt.Errorf("%w %v", ErrInvalidTransport, t)
	}
}

// ReadParams decodes the parameter block held by src.
func ReadParams(src ParamSource) (DrawParams, error) {
	return DecodeParams(src.Block())
}
