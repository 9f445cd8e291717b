// Package security implements the gRPC transport for the home security service.
//
// The service is declared by hand over protobuf well-known types, so no
// generated stubs are needed: configs travel as google.protobuf.Struct
// documents keyed like the stored JSON, images as google.protobuf.BytesValue.
// The server adapts the messages to a provided business-service interface
// and maps classified domain errors to gRPC status codes.
package security
