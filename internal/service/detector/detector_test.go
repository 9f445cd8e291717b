package detector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/home-security/internal/domain/security"
	"github.com/oshokin/home-security/internal/metrics"
)

// errTestKilled stands in for the wait error of a killed worker.
var errTestKilled = errors.New("signal: killed")

// writeScript stores an executable shell script in dir.
func writeScript(t *testing.T, dir, body string) string {
	t.Helper()

	path := filepath.Join(dir, "worker.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o700))

	return path
}

// newTestDetector builds a detector running body through /bin/sh.
func newTestDetector(t *testing.T, body string) (*Detector, Options) {
	t.Helper()

	dir := t.TempDir()
	opts := Options{
		Interpreter:         "/bin/sh",
		Script:              writeScript(t, dir, body),
		ModelDir:            filepath.Join(dir, "model"),
		ConfidenceThreshold: "0.5",
		NMSThreshold:        "0.3",
		CaptureDir:          filepath.Join(dir, "captures"),
		CaptureBaseName:     "new_capture",
		OutputDir:           filepath.Join(dir, "annotated"),
		OutputBaseName:      "new_capture_annotated",
	}

	return New(opts, metrics.NewMetrics(nil)), opts
}

// TestDetect_Verdicts maps worker output to verdicts and errors.
func TestDetect_Verdicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		want    Verdict
		wantErr bool
	}{
		{
			name: "person",
			body: `echo "Loading model"; echo "Person detected."`,
			want: PersonDetected,
		},
		{
			name: "no person",
			body: `echo "Person not detected."`,
			want: NoPersonDetected,
		},
		{
			name: "sentinel on stderr",
			body: `echo "Person detected." 1>&2`,
			want: PersonDetected,
		},
		{
			name: "non-zero exit with sentinel",
			body: `echo "Person not detected."; exit 3`,
			want: NoPersonDetected,
		},
		{
			name:    "no sentinel",
			body:    `echo "something else"`,
			wantErr: true,
		},
		{
			name:    "no output",
			body:    `exit 0`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, _ := newTestDetector(t, tt.body)

			got, err := d.Detect(context.Background(), []byte("jpeg"))
			if tt.wantErr {
				require.Error(t, err)
				require.True(t, security.IsKind(err, security.KindProcess))

				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

// TestDetect_Arguments passes the fixed argument order and the artifact bytes.
func TestDetect_Arguments(t *testing.T) {
	t.Parallel()

	d, opts := newTestDetector(t, `
for arg in "$@"; do echo "arg=$arg"; done
cat "$1" > "$5/$6.jpeg"
echo "Person detected."`)

	verdict, err := d.Detect(context.Background(), []byte("captured"))
	require.NoError(t, err)
	require.Equal(t, PersonDetected, verdict)

	annotated, err := os.ReadFile(d.AnnotatedImagePath())
	require.NoError(t, err)
	require.Equal(t, "captured", string(annotated))
	require.Equal(t, filepath.Join(opts.OutputDir, "new_capture_annotated.jpeg"), d.AnnotatedImagePath())

	// The per-attempt input image is removed once the worker exits.
	entries, err := os.ReadDir(opts.CaptureDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

// TestDetect_UniqueArtifacts uses a distinct input path per attempt.
func TestDetect_UniqueArtifacts(t *testing.T) {
	t.Parallel()

	const attempts = 4

	_, opts := newTestDetector(t, `echo "$1" >> "$5/inputs.log"; echo "Person not detected."`)
	opts.MaxWorkers = attempts
	d := New(opts, nil)

	var (
		wg   sync.WaitGroup
		errs = make(chan error, attempts)
	)

	for range attempts {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := d.Detect(context.Background(), []byte("x"))
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	data, err := os.ReadFile(filepath.Join(opts.OutputDir, "inputs.log"))
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for _, line := range strings.Fields(string(data)) {
		seen[line] = struct{}{}
	}

	require.Len(t, seen, attempts)
}

// TestDetect_MissingScript reports a process error when the worker cannot start.
func TestDetect_MissingScript(t *testing.T) {
	t.Parallel()

	d, _ := newTestDetector(t, "")
	d.opts.Interpreter = ""
	d.opts.Script = filepath.Join(t.TempDir(), "absent")

	_, err := d.Detect(context.Background(), []byte("x"))
	require.Error(t, err)
	require.True(t, security.IsKind(err, security.KindProcess))
	require.Equal(t, float64(1), testutil.ToFloat64(d.metrics.DetectionsTotal.WithLabelValues(metrics.ResultError)))
}

// TestDetect_ArtifactWrite reports an artifact error naming the unusable directory.
func TestDetect_ArtifactWrite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		block func(opts *Options, blocked string)
	}{
		{
			name:  "capture dir",
			block: func(opts *Options, blocked string) { opts.CaptureDir = blocked },
		},
		{
			name:  "output dir",
			block: func(opts *Options, blocked string) { opts.OutputDir = blocked },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, _ := newTestDetector(t, `echo "Person detected."`)

			file := filepath.Join(t.TempDir(), "file")
			require.NoError(t, os.WriteFile(file, nil, 0o600))

			blocked := filepath.Join(file, "dir")
			tt.block(&d.opts, blocked)

			_, err := d.Detect(context.Background(), []byte("x"))
			require.Error(t, err)
			require.True(t, security.IsKind(err, security.KindArtifactWrite))
			require.Contains(t, err.Error(), "the directory "+blocked+".")
		})
	}
}

// TestDetect_SkipsOversizedLine keeps scanning past a line above the limit.
func TestDetect_SkipsOversizedLine(t *testing.T) {
	t.Parallel()

	d, _ := newTestDetector(t, `head -c 2097152 /dev/zero | tr '\000' a; echo; echo "Person detected."`)

	verdict, err := d.Detect(context.Background(), []byte("x"))
	require.NoError(t, err)
	require.Equal(t, PersonDetected, verdict)
}

// TestVerdictOf_CleanExitAfterDeadline trusts the output of a worker that exited normally.
func TestVerdictOf_CleanExitAfterDeadline(t *testing.T) {
	t.Parallel()

	d, _ := newTestDetector(t, "")
	d.opts.WorkerTimeout = time.Second

	verdict, err := d.verdictOf(
		context.Background(),
		[]string{PersonDetectedLine},
		nil,
		nil,
		context.DeadlineExceeded,
	)
	require.NoError(t, err)
	require.Equal(t, PersonDetected, verdict)

	_, err = d.verdictOf(
		context.Background(),
		[]string{PersonDetectedLine},
		nil,
		errTestKilled,
		context.DeadlineExceeded,
	)
	require.True(t, security.IsKind(err, security.KindProcess))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestDetect_Timeout kills a worker tree that outlives WorkerTimeout.
func TestDetect_Timeout(t *testing.T) {
	t.Parallel()

	d, _ := newTestDetector(t, `sleep 30 & sleep 30; echo "Person detected."`)
	d.opts.WorkerTimeout = 200 * time.Millisecond

	started := time.Now()

	_, err := d.Detect(context.Background(), []byte("x"))
	require.Error(t, err)
	require.True(t, security.IsKind(err, security.KindProcess))
	require.Less(t, time.Since(started), 10*time.Second)
}

// TestDetect_CallerCancelDoesNotKillWorker lets a started worker finish.
func TestDetect_CallerCancelDoesNotKillWorker(t *testing.T) {
	t.Parallel()

	d, _ := newTestDetector(t, `sleep 0.3; echo "Person detected."`)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	verdict, err := d.Detect(ctx, []byte("x"))
	require.NoError(t, err)
	require.Equal(t, PersonDetected, verdict)
}

// TestDetect_WaitingForSlotHonoursCancel gives up while all workers are busy.
func TestDetect_WaitingForSlotHonoursCancel(t *testing.T) {
	t.Parallel()

	d, _ := newTestDetector(t, `echo "Person detected."`)
	require.True(t, d.workers.TryAcquire(1))

	t.Cleanup(func() {
		d.workers.Release(1)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := d.Detect(ctx, []byte("x"))
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
