package capture

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

// startupWindow is how long Start watches a freshly spawned ffmpeg for an
// immediate exit. A denied microphone kills ffmpeg within this window, so the
// failure surfaces at Start rather than at Stop.
const startupWindow = 150 * time.Millisecond

// FFmpegDevice captures the default microphone by shelling out to ffmpeg.
// The process records into a temp file; interrupting it makes ffmpeg finish
// writing the container, so Stop returns only fully flushed audio.
type FFmpegDevice struct {
	bin string

	mu      sync.Mutex
	cmd     *exec.Cmd
	wait    chan error
	outPath string
	stderr  bytes.Buffer
}

func NewFFmpegDevice() *FFmpegDevice {
	return &FFmpegDevice{bin: "ffmpeg"}
}

func (d *FFmpegDevice) MIME() string {
	return "audio/wav"
}

func (d *FFmpegDevice) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd != nil {
		return fmt.Errorf("capture already in progress")
	}

	out, err := os.CreateTemp("", "capture_*.wav")
	if err != nil {
		return fmt.Errorf("failed to create capture file: %w", err)
	}
	outPath := out.Name()
	out.Close()

	d.stderr.Reset()

	format, input := defaultInput()
	cmd := exec.Command(d.bin,
		"-f", format,
		"-i", input,
		"-ar", "16000",
		"-ac", "1",
		"-acodec", "pcm_s16le",
		"-y",
		outPath,
	)
	cmd.Stderr = &d.stderr

	if err := cmd.Start(); err != nil {
		os.Remove(outPath)
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	wait := make(chan error, 1)
	go func() {
		wait <- cmd.Wait()
	}()

	select {
	case waitErr := <-wait:
		os.Remove(outPath)
		stderr := d.stderr.String()
		if strings.Contains(strings.ToLower(stderr), "permission denied") {
			return ErrPermissionDenied
		}
		return fmt.Errorf("ffmpeg exited at startup: %w\n%s", waitErr, stderr)
	case <-time.After(startupWindow):
	}

	d.cmd = cmd
	d.wait = wait
	d.outPath = outPath
	return nil
}

func (d *FFmpegDevice) Stop(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	cmd := d.cmd
	wait := d.wait
	outPath := d.outPath
	d.cmd = nil
	d.wait = nil
	d.mu.Unlock()

	if cmd == nil {
		return nil, fmt.Errorf("capture was not started")
	}
	defer os.Remove(outPath)

	// SIGINT asks ffmpeg to finish the file cleanly; the wait channel fires
	// once the last buffered samples hit disk.
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		cmd.Process.Kill()
		<-wait
		return nil, fmt.Errorf("failed to interrupt ffmpeg: %w", err)
	}
	if err := <-wait; err != nil {
		stderr := d.stderr.String()
		if strings.Contains(strings.ToLower(stderr), "permission denied") {
			return nil, ErrPermissionDenied
		}
		// ffmpeg exits non-zero on SIGINT even after a clean finish; only
		// fail when no output was produced.
		if _, statErr := os.Stat(outPath); statErr != nil {
			return nil, fmt.Errorf("ffmpeg capture failed: %w\n%s", err, stderr)
		}
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read captured audio: %w", err)
	}
	return data, nil
}

func defaultInput() (format, input string) {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation", ":0"
	case "windows":
		return "dshow", "audio=default"
	default:
		return "alsa", "default"
	}
}
