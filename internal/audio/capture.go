// Package audio wraps microphone capture and speaker playback for live
// calls. Capture produces raw little-endian signed 16-bit PCM; playback
// consumes the same.
package audio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// Capture reads PCM frames from the default microphone.
type Capture struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
}

// OpenCapture starts the default capture device at the given format.
func OpenCapture(sampleRate, channels int) (*Capture, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("capture format %d Hz / %d ch is invalid", sampleRate, channels)
	}

	ctxConfig := malgo.ContextConfig{}
	ctxConfig.ThreadPriority = malgo.ThreadPriorityRealtime
	ctx, err := malgo.InitContext(nil, ctxConfig, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	c := &Capture{
		ctx: ctx,
		buf: make([]byte, 0, sampleRate*2),
	}
	c.cond = sync.NewCond(&c.mu)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			c.mu.Lock()
			if !c.closed {
				c.buf = append(c.buf, input...)
			}
			c.mu.Unlock()
			c.cond.Signal()
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("init microphone: %w", err)
	}
	c.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("start microphone: %w", err)
	}
	return c, nil
}

// Read blocks until PCM data is available or the capture is closed. A zero
// count with no error means the capture was closed.
func (c *Capture) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.buf) == 0 && !c.closed {
		c.cond.Wait()
	}
	if c.closed && len(c.buf) == 0 {
		return 0, nil
	}

	n := copy(p, c.buf)
	c.buf = c.buf[n:]
	return n, nil
}

// Close stops the device and unblocks any pending Read.
func (c *Capture) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cond.Broadcast()
	c.mu.Unlock()

	if c.device != nil {
		_ = c.device.Stop()
		c.device.Uninit()
	}
	if c.ctx != nil {
		_ = c.ctx.Uninit()
		c.ctx.Free()
	}
	return nil
}
