package capture

import (
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
)

type PlaybackState int

const (
	PlaybackStopped PlaybackState = iota
	PlaybackPlaying
	PlaybackUnavailable
)

func (s PlaybackState) String() string {
	switch s {
	case PlaybackStopped:
		return "stopped"
	case PlaybackPlaying:
		return "playing"
	case PlaybackUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Player plays a synthesized audio URL through ffplay. Playback failures set
// the Unavailable marker and nothing else: audio is an optional enhancement
// to the text result, never a reason to fail a session.
type Player struct {
	log *slog.Logger

	mu    sync.Mutex
	state PlaybackState
	cmd   *exec.Cmd
	done  chan struct{}
}

func NewPlayer(log *slog.Logger) *Player {
	return &Player{
		log:   log,
		state: PlaybackStopped,
	}
}

func (p *Player) State() PlaybackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Play starts playback of the given URL, stopping any prior playback first.
func (p *Player) Play(audioURL string) error {
	p.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()

	cmd := exec.Command("ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", audioURL)
	if err := cmd.Start(); err != nil {
		p.state = PlaybackUnavailable
		p.log.Warn("audio playback unavailable", slog.String("error", err.Error()))
		return fmt.Errorf("failed to start playback: %w", err)
	}

	done := make(chan struct{})
	p.cmd = cmd
	p.done = done
	p.state = PlaybackPlaying
	p.log.Debug("playback started", slog.String("url", audioURL))

	go func() {
		err := cmd.Wait()
		close(done)

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.cmd != cmd {
			// A newer playback replaced this one.
			return
		}
		p.cmd = nil
		if err != nil {
			p.state = PlaybackUnavailable
			p.log.Warn("playback ended with error", slog.String("error", err.Error()))
			return
		}
		p.state = PlaybackStopped
	}()

	return nil
}

func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
		p.cmd = nil
	}
	p.state = PlaybackStopped
}

// Wait blocks until the current playback finishes. No-op when stopped.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done != nil {
		<-done
	}
}
