// Package state implements persistence for the alarm security.Config.
//
// Repository is the contract the coordinator depends on. Three backends
// implement it: FileRepository (a protojson document on disk, the default),
// SQLiteRepository (a single-row table) and RedisRepository (one key).
// Every backend returns ErrNotFound until the first Save.
package state
