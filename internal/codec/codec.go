// Package codec converts security.Config to and from its wire forms.
//
// The canonical form is a protobuf Struct with the fields securityStatus and
// securityState. It is sent as-is over gRPC and rendered through protojson for
// files, redis values, pub/sub messages and REST bodies, so every surface
// shares one JSON shape.
package codec

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/home-security/internal/domain/security"
)

const (
	// StatusField is the JSON/Struct field carrying the status axis.
	StatusField = "securityStatus"
	// StateField is the JSON/Struct field carrying the state axis.
	StateField = "securityState"
)

// errNilStruct is returned when a nil message is decoded.
var errNilStruct = errors.New("config message is empty")

// ToStruct converts the config into a protobuf Struct.
func ToStruct(cfg security.Config) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			StatusField: structpb.NewStringValue(string(cfg.Status)),
			StateField:  structpb.NewStringValue(string(cfg.State)),
		},
	}
}

// FromStruct converts a protobuf Struct into a validated config.
// Failures wrap security.ErrInvalidConfig.
func FromStruct(message *structpb.Struct) (security.Config, error) {
	if message == nil {
		return security.Config{}, fmt.Errorf("%w: %w", security.ErrInvalidConfig, errNilStruct)
	}

	fields := message.GetFields()

	return security.ParseConfig(
		fields[StatusField].GetStringValue(),
		fields[StateField].GetStringValue(),
	)
}

// MarshalJSON renders the config as a JSON object.
func MarshalJSON(cfg security.Config) ([]byte, error) {
	data, err := protojson.Marshal(ToStruct(cfg))
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}

	return data, nil
}

// UnmarshalJSON parses a JSON object into a validated config.
func UnmarshalJSON(data []byte) (security.Config, error) {
	var message structpb.Struct
	if err := protojson.Unmarshal(data, &message); err != nil {
		return security.Config{}, fmt.Errorf("%w: decode config: %w", security.ErrInvalidConfig, err)
	}

	return FromStruct(&message)
}
