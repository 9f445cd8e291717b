// Package coordinator composes detection, the alarm guards, the config store
// and the config publisher into the operations exposed by the transports.
//
// Every operation that changes the config runs load, guard and save under one
// mutex, then reloads the stored value and publishes it.
package coordinator
