// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client wrapper for the security service with
// per-call timeouts, and utilities to detect and propagate the current system
// actor (hostname/username) for audit purposes.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
