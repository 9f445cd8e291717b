// Package config defines the settings used by the security binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Validate fills defaults for every optional field, so a minimal file (or an
// empty one) yields a runnable single-host setup: file store, log publisher,
// and a python3 detection worker.
package config
