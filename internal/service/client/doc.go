// Package client implements the security-ctl operations.
//
// A Session connects to the security server over gRPC, runs one operation
// (status, transitions, config updates, checks, image download) and prints
// the resulting alarm config. Watch polls the server and reports every change.
package client
