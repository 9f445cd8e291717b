// Package server wires the security-server process: settings, logging, the
// config store and publisher, the detection worker, and the gRPC and HTTP
// listeners with their graceful shutdown.
package server
