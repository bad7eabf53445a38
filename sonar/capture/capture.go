package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrPermissionDenied means the platform refused access to the microphone.
var ErrPermissionDenied = errors.New("microphone access denied")

// Artifact is one finished recording.
type Artifact struct {
	Data []byte
	MIME string
}

// Device is the minimal capture capability the recorder drives. Stop blocks
// until the device has flushed everything it buffered, so the returned
// payload is always complete.
type Device interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) ([]byte, error)
	MIME() string
}

type State int

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StateError:
		return "error"
	}
	return "unknown"
}

type result struct {
	artifact Artifact
	err      error
}

// Recorder owns the capture device while recording and enforces the maximum
// recording duration: when it elapses, capture finalizes on its own, without
// an explicit Stop. Finalization resolves exactly once per recording,
// whichever of the timer or the caller gets there first.
type Recorder struct {
	device      Device
	maxDuration time.Duration
	log         *slog.Logger

	mu    sync.Mutex
	state State
	timer *time.Timer
	done  chan result
}

func NewRecorder(device Device, maxDuration time.Duration, log *slog.Logger) *Recorder {
	return &Recorder{
		device:      device,
		maxDuration: maxDuration,
		log:         log,
		state:       StateIdle,
	}
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start acquires the device and begins capturing. A denied device leaves the
// recorder in Idle.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateIdle {
		return fmt.Errorf("recorder is %s, not idle", r.state)
	}

	if err := r.device.Start(ctx); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	r.state = StateRecording
	r.done = make(chan result, 1)
	r.timer = time.AfterFunc(r.maxDuration, func() {
		r.log.Info("max recording duration reached, finalizing capture")
		r.finalize(context.Background())
	})

	r.log.Debug("recording started", slog.Duration("max_duration", r.maxDuration))
	return nil
}

// Stop requests finalization and waits for the complete payload. If the
// duration ceiling already finalized the recording, Stop just returns the
// finished artifact.
func (r *Recorder) Stop(ctx context.Context) (Artifact, error) {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	if done == nil {
		return Artifact{}, fmt.Errorf("recorder was never started")
	}

	r.finalize(ctx)

	select {
	case res := <-done:
		return res.artifact, res.err
	case <-ctx.Done():
		return Artifact{}, ctx.Err()
	}
}

// finalize moves Recording to Processing, drains the device, and delivers the
// result. Calls past the first are no-ops.
func (r *Recorder) finalize(ctx context.Context) {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return
	}
	r.state = StateProcessing
	timer := r.timer
	done := r.done
	r.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}

	data, err := r.device.Stop(ctx)

	r.mu.Lock()
	if err != nil {
		r.state = StateError
	} else {
		r.state = StateIdle
	}
	r.mu.Unlock()

	if err != nil {
		r.log.Error("capture failed", slog.String("error", err.Error()))
		done <- result{err: fmt.Errorf("failed to finalize capture: %w", err)}
		return
	}

	done <- result{artifact: Artifact{Data: data, MIME: r.device.MIME()}}
}

// Close releases the device on teardown. A recording in flight is finalized
// and its payload discarded.
func (r *Recorder) Close() error {
	r.mu.Lock()
	recording := r.state == StateRecording
	done := r.done
	r.mu.Unlock()

	if !recording {
		return nil
	}

	r.finalize(context.Background())
	select {
	case <-done:
	default:
	}
	return nil
}
