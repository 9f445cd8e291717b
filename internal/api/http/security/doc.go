// Package security implements the REST transport for the home security service.
//
// Routes mirror the camera-facing HTTP API: configs are JSON documents with
// securityStatus and securityState fields, images are exchanged base64
// encoded (or as a multipart "image" part for checks), and every failure is a
// problem document {"title","status","detail"}.
package security
