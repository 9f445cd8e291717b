// Package security contains the core domain of the home security backend.
//
// It defines Config (the two-axis alarm value: safe/breached and armed/disarmed),
// the pure transition guards that gate every change to it, and the Error type
// carrying the failure kinds surfaced to transports.
package security
