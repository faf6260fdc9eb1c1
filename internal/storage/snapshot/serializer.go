package snapshot

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/yndnr/statesnap/internal/core/domain"
)

// Serializer turns the opaque workflow state into bytes and back.
//
// Deserialize returns an error matching domain.ErrIncompatibleSnapshot when
// the payload references types unknown to this process.
type Serializer interface {
	// Protocol is the format version embedded in snapshot file names.
	Protocol() int
	Serialize(w io.Writer, state any) error
	Deserialize(r io.Reader) (any, error)
}

// Serializer protocol numbers.
const (
	GobProtocol   = 4
	ProtoProtocol = 5
)

// NewSerializer returns the serializer registered under name ("gob" or
// "proto").
func NewSerializer(name string) (Serializer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "gob":
		return GobSerializer{}, nil
	case "proto", "protobuf":
		return ProtoSerializer{}, nil
	default:
		return nil, domain.ErrConfiguration.WithDetails(fmt.Sprintf("unknown serializer %q", name))
	}
}

// gobEnvelope carries the state behind an interface so the concrete type
// name travels with the payload.
type gobEnvelope struct {
	State any
}

// GobSerializer encodes state with encoding/gob. Concrete state types must be
// registered with gob.Register (or RegisterType) in both the writing and the
// reading process.
type GobSerializer struct{}

// RegisterType registers the concrete type of v for gob snapshots.
func RegisterType(v any) {
	gob.Register(v)
}

func (GobSerializer) Protocol() int { return GobProtocol }

func (GobSerializer) Serialize(w io.Writer, state any) error {
	return gob.NewEncoder(w).Encode(&gobEnvelope{State: state})
}

func (GobSerializer) Deserialize(r io.Reader) (any, error) {
	var env gobEnvelope
	if err := gob.NewDecoder(r).Decode(&env); err != nil {
		switch {
		case isGobTypeError(err):
			return nil, domain.ErrIncompatibleSnapshot.WithCause(err)
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return nil, domain.ErrSnapshotDecode.WithDetails("truncated gob payload").WithCause(err)
		case domain.IsDomainError(err, ""):
			return nil, err
		default:
			return nil, domain.ErrSnapshotDecode.WithDetails("gob payload").WithCause(err)
		}
	}
	return env.State, nil
}

func isGobTypeError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "not registered") ||
		strings.Contains(msg, "type mismatch") ||
		strings.Contains(msg, "wrong type")
}

// ProtoSerializer stores a proto.Message packed in an anypb.Any. The message
// type must be linked into the reading process.
type ProtoSerializer struct{}

func (ProtoSerializer) Protocol() int { return ProtoProtocol }

func (ProtoSerializer) Serialize(w io.Writer, state any) error {
	msg, ok := state.(proto.Message)
	if !ok {
		return domain.ErrConfiguration.WithDetails(fmt.Sprintf("proto serializer needs a proto.Message, got %T", state))
	}
	packed, err := anypb.New(msg)
	if err != nil {
		return fmt.Errorf("snapshot: pack state: %w", err)
	}
	data, err := proto.Marshal(packed)
	if err != nil {
		return fmt.Errorf("snapshot: marshal state: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func (ProtoSerializer) Deserialize(r io.Reader) (any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var packed anypb.Any
	if err := proto.Unmarshal(data, &packed); err != nil {
		return nil, domain.ErrSnapshotDecode.WithDetails("unmarshal envelope").WithCause(err)
	}
	msg, err := packed.UnmarshalNew()
	if err != nil {
		if errors.Is(err, protoregistry.NotFound) {
			return nil, domain.ErrIncompatibleSnapshot.WithDetails(packed.GetTypeUrl()).WithCause(err)
		}
		return nil, domain.ErrSnapshotDecode.WithDetails("unmarshal state").WithCause(err)
	}
	return msg, nil
}
