package detector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/oshokin/home-security/internal/config"
	"github.com/oshokin/home-security/internal/domain/security"
	"github.com/oshokin/home-security/internal/logger"
	"github.com/oshokin/home-security/internal/metrics"
)

const (
	// maxLineLength caps a single worker output line; longer lines are dropped.
	maxLineLength = 1024 * 1024
	// readBufferSize is the worker output read buffer.
	readBufferSize = 64 * 1024
)

// Detector spawns one detection worker per call.
type Detector struct {
	// opts describes the worker invocation.
	opts Options
	// workers bounds the number of concurrently running workers.
	workers *semaphore.Weighted
	// metrics records attempts; may be nil.
	metrics *metrics.Metrics
	// newID names the per-attempt artifacts.
	newID func() string
}

// worker is a started detection process and the read end of its merged output.
type worker struct {
	cmd    *exec.Cmd
	output *os.File
}

// New creates a Detector. The metrics argument may be nil.
func New(opts Options, m *metrics.Metrics) *Detector {
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}

	return &Detector{
		opts:    opts,
		workers: semaphore.NewWeighted(opts.MaxWorkers),
		metrics: m,
		newID:   uuid.NewString,
	}
}

// AnnotatedImagePath returns where a successful worker leaves the annotated image.
func (d *Detector) AnnotatedImagePath() string {
	return d.opts.annotatedImagePath()
}

// Detect runs the worker on the image and blocks until it exits.
//
// The caller's context only bounds the wait for a free worker slot; a started
// worker is bounded by Options.WorkerTimeout alone.
func (d *Detector) Detect(ctx context.Context, image []byte) (Verdict, error) {
	attemptID := d.newID()
	ctx = logger.WithKV(logger.WithName(ctx, "detector"), "attempt", attemptID)
	started := time.Now()

	if err := d.workers.Acquire(ctx, 1); err != nil {
		return NoPersonDetected, security.NewError(
			security.KindProcess,
			err,
			"Detection was abandoned while waiting for a free worker: %s.",
			err,
		)
	}
	defer d.workers.Release(1)

	verdict, err := d.detect(ctx, attemptID, image)

	d.observe(started, verdict, err)

	if err != nil {
		logger.ErrorKV(ctx, "Detection failed", "error", err, "elapsed", time.Since(started))

		return NoPersonDetected, err
	}

	logger.InfoKV(ctx, "Detection finished", "verdict", verdict.String(), "elapsed", time.Since(started))

	return verdict, nil
}

func (d *Detector) detect(ctx context.Context, attemptID string, image []byte) (Verdict, error) {
	inputPath, err := d.writeArtifact(attemptID, image)
	if err != nil {
		return NoPersonDetected, err
	}

	defer removeArtifact(ctx, inputPath)

	workerCtx := context.WithoutCancel(ctx)

	if d.opts.WorkerTimeout > 0 {
		var cancel context.CancelFunc

		workerCtx, cancel = context.WithTimeout(workerCtx, d.opts.WorkerTimeout)
		defer cancel()
	}

	w, err := d.spawn(workerCtx, inputPath)
	if err != nil {
		return NoPersonDetected, err
	}

	if d.metrics != nil {
		d.metrics.WorkersInFlight.Inc()
		defer d.metrics.WorkersInFlight.Dec()
	}

	lines, drainErr := w.drain(workerCtx)
	waitErr := w.cmd.Wait()

	return d.verdictOf(ctx, lines, drainErr, waitErr, workerCtx.Err())
}

// verdictOf classifies a finished worker run. An expired deadline only fails the
// attempt when the worker did not exit cleanly.
func (d *Detector) verdictOf(ctx context.Context, lines []string, drainErr, waitErr, deadlineErr error) (Verdict, error) {
	if waitErr != nil && deadlineErr != nil {
		return NoPersonDetected, security.NewError(
			security.KindProcess,
			deadlineErr,
			"The detection worker did not finish within %s and was terminated.",
			d.opts.WorkerTimeout,
		)
	}

	if drainErr != nil {
		return NoPersonDetected, security.NewError(
			security.KindProcess,
			drainErr,
			"Could not read the detection worker output: %s.",
			drainErr,
		)
	}

	if waitErr != nil {
		// The exit code is informational; the sentinel lines decide the outcome.
		logger.WarnKV(ctx, "Detection worker exited abnormally", "error", waitErr, "lines", len(lines))
	}

	for _, line := range lines {
		logger.DebugKV(ctx, "Worker output", "line", line)
	}

	return ParseVerdict(lines)
}

// writeArtifact stores the image under a name unique to this attempt.
func (d *Detector) writeArtifact(attemptID string, image []byte) (string, error) {
	fileName := fmt.Sprintf("%s-%s%s", d.opts.CaptureBaseName, attemptID, imageExtension)
	inputPath := filepath.Join(d.opts.CaptureDir, fileName)

	for _, dir := range []string{d.opts.CaptureDir, d.opts.OutputDir} {
		if err := os.MkdirAll(dir, config.DefaultDirPermissions); err != nil {
			return "", artifactError(fileName, dir, err)
		}
	}

	if err := os.WriteFile(inputPath, image, config.DefaultFilePermissions); err != nil {
		return "", artifactError(fileName, d.opts.CaptureDir, err)
	}

	return inputPath, nil
}

// spawn starts the worker with stderr merged into stdout through a single pipe,
// so both streams are read back as one ordered sequence of lines.
func (d *Detector) spawn(ctx context.Context, inputPath string) (*worker, error) {
	reader, writer, err := os.Pipe()
	if err != nil {
		return nil, security.NewError(
			security.KindProcess,
			err,
			"Could not create the output pipe for the detection worker: %s.",
			err,
		)
	}

	name, args := d.opts.command(inputPath)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = writer
	cmd.Stderr = writer
	cmd.Cancel = func() error {
		return terminateTree(cmd.Process)
	}

	if err = cmd.Start(); err != nil {
		_ = reader.Close()
		_ = writer.Close()

		return nil, security.NewError(
			security.KindProcess,
			err,
			"Could not start the detection worker %s in directory %s: %s.",
			d.opts.Script,
			filepath.Dir(d.opts.Script),
			err,
		)
	}

	// The child holds its own copy; closing ours lets the reader see end-of-stream.
	_ = writer.Close()

	return &worker{
		cmd:    cmd,
		output: reader,
	}, nil
}

// drain collects every output line until end-of-stream. Lines longer than
// maxLineLength are skipped and reading continues.
// When ctx ends first, the pipe is closed so a killed tree cannot block the read.
func (w *worker) drain(ctx context.Context) ([]string, error) {
	defer func() {
		_ = w.output.Close()
	}()

	stop := context.AfterFunc(ctx, func() {
		_ = w.output.Close()
	})
	defer stop()

	reader := bufio.NewReaderSize(w.output, readBufferSize)

	var (
		lines     []string
		line      []byte
		oversized bool
	)

	for {
		chunk, isPrefix, err := reader.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return lines, nil
			}

			// Keep the pipe flowing so the worker never blocks on a full buffer.
			_, _ = io.Copy(io.Discard, reader)

			return lines, err
		}

		if !oversized {
			if len(line)+len(chunk) > maxLineLength {
				oversized = true
			} else {
				line = append(line, chunk...)
			}
		}

		if isPrefix {
			continue
		}

		if oversized {
			logger.WarnKV(ctx, "Skipped oversized worker output line", "limit_bytes", maxLineLength)
		} else {
			lines = append(lines, string(line))
		}

		line = line[:0]
		oversized = false
	}
}

func (d *Detector) observe(started time.Time, verdict Verdict, err error) {
	if d.metrics == nil {
		return
	}

	result := verdict.String()
	if err != nil {
		result = metrics.ResultError
	}

	d.metrics.DetectionsTotal.WithLabelValues(result).Inc()
	d.metrics.DetectionDuration.Observe(time.Since(started).Seconds())
}

func removeArtifact(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Failed to remove input image", "path", path, "error", err)
	}
}

func artifactError(fileName, dir string, err error) *security.Error {
	return security.NewError(
		security.KindArtifactWrite,
		err,
		"The image %s could not be saved to the directory %s. An error was returned with message %q.",
		fileName,
		dir,
		err.Error(),
	)
}
