package audio

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// Player buffers PCM and feeds the speaker. oto pulls from the buffer via
// the io.Reader side; Write appends and starts the player lazily on the
// first frame so silence before the agent speaks costs nothing.
type Player struct {
	otoCtx *oto.Context
	player *oto.Player

	mu      sync.Mutex
	cond    *sync.Cond
	buf     []byte
	playing bool
	closed  bool
}

// NewPlayer initializes the speaker at the given format.
func NewPlayer(sampleRate, channels int) (*Player, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("playback format %d Hz / %d ch is invalid", sampleRate, channels)
	}

	// At 24kHz mono 16-bit, 4800 bytes is roughly 100ms. A small buffer
	// keeps latency low at the cost of glitch headroom.
	opts := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   4800,
	}
	otoCtx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	<-ready

	p := &Player{
		otoCtx: otoCtx,
		buf:    make([]byte, 0, sampleRate*4),
	}
	p.cond = sync.NewCond(&p.mu)
	return p, nil
}

// Write queues PCM for playback and starts the player on the first frame.
func (p *Player) Write(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.buf = append(p.buf, data...)

	if !p.playing {
		p.playing = true
		p.player = p.otoCtx.NewPlayer(p)
		p.player.Play()
	}
	p.cond.Signal()
}

// Read implements io.Reader for oto.Player; it blocks until data arrives or
// the player closes, then pads with silence so oto drains gracefully.
func (p *Player) Read(out []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.buf) == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.closed && len(p.buf) == 0 {
		for i := range out {
			out[i] = 0
		}
		return len(out), nil
	}

	n := copy(out, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

// Flush discards queued audio and stops the current playback so the next
// Write starts fresh. Used when the user interrupts the agent.
func (p *Player) Flush() {
	p.mu.Lock()
	p.buf = p.buf[:0]

	if p.player != nil && p.playing {
		p.playing = false
		player := p.player
		p.player = nil
		p.mu.Unlock()

		player.Pause()
		player.Reset()
		_ = player.Close()
		return
	}
	p.mu.Unlock()
}

// Close stops playback and releases the speaker.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.cond.Broadcast()
	player := p.player
	p.player = nil
	p.mu.Unlock()

	if player != nil {
		_ = player.Close()
	}
	return nil
}
