// Package detector runs the external person-detection worker.
//
// Each Detect call writes the image to its own artifact file, spawns one
// worker with a fixed positional argv, drains the worker's merged
// stdout/stderr until end-of-stream and interprets the collected lines under
// a sentinel contract: at least one line must contain "Person detected." or
// "Person not detected.". Output lines longer than 1 MiB are skipped. There
// are no retries; every failure is returned as a classified *security.Error.
//
// The number of concurrent workers is bounded by a semaphore. A worker runs
// until it exits unless Options.WorkerTimeout is set, in which case the whole
// worker process tree is killed when the deadline passes.
package detector
