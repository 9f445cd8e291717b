// Package publisher broadcasts alarm config changes.
//
// Publishing is fire-and-forget: implementations log delivery failures and
// never report them to the caller, because a lost notification must not undo
// a config change that is already persisted.
package publisher
