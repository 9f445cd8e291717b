// Package version exposes build metadata of the security binaries.
//
// Version, Commit and BuildTime can be injected with -ldflags
// "-X github.com/oshokin/home-security/internal/version.Version=...".
// Commit and BuildTime otherwise come from the VCS stamps in the binary.
package version
