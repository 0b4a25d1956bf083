// Package call manages the lifecycle of one live voice call: credential
// issue, room connection, microphone publishing, and agent event handling.
package call

import (
	"context"
	"log/slog"
	"time"

	vox "github.com/vango-go/vox-console/sdk"

	"github.com/vango-go/vox-console/pkg/realtime"
)

// State is the connection state of a call session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Settings carries the agent configuration sent with each call.
type Settings struct {
	Prompt       string
	Instructions string
}

// ChatMessage is one data message received from another participant.
type ChatMessage struct {
	Sender string
	Text   string
}

// CredentialIssuer issues room access credentials.
type CredentialIssuer interface {
	Issue(ctx context.Context, req *vox.CredentialRequest) (*vox.Credential, error)
}

// RoomSession is the media room surface the controller drives.
type RoomSession interface {
	Events() <-chan realtime.Event
	PublishAudioFrame(pcm []byte, seq int64) error
	Close() error
}

// RoomDialer opens a media room session.
type RoomDialer func(ctx context.Context, wsURL string, opts realtime.DialOptions) (RoomSession, error)

// AudioSource produces microphone PCM. A zero-count read with nil error
// means the source is closed.
type AudioSource interface {
	Read(p []byte) (int, error)
	Close() error
}

// CaptureOpener opens the microphone at the given format.
type CaptureOpener func(sampleRate, channels int) (AudioSource, error)

// AudioSink consumes remote PCM for playback.
type AudioSink interface {
	Write(data []byte)
	Flush()
	Close() error
}

// PlayerOpener opens the speaker at the given format. Optional: calls run
// without local playback when it is nil or fails.
type PlayerOpener func(sampleRate, channels int) (AudioSink, error)

// Config wires a Controller to its collaborators.
type Config struct {
	RealtimeURL    string
	ConnectTimeout time.Duration

	// AudioIn is the microphone format. Zero values default to 16 kHz mono.
	AudioIn realtime.AudioFormat

	// AudioOut is the remote audio format. Zero values default to 24 kHz mono.
	AudioOut realtime.AudioFormat

	Issuer      CredentialIssuer
	DialRoom    RoomDialer
	OpenCapture CaptureOpener
	OpenPlayer  PlayerOpener

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.AudioIn.Encoding == "" {
		c.AudioIn = realtime.AudioFormat{Encoding: "pcm_s16le", SampleRateHz: 16000, Channels: 1}
	}
	if c.AudioOut.Encoding == "" {
		c.AudioOut = realtime.AudioFormat{Encoding: "pcm_s16le", SampleRateHz: 24000, Channels: 1}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
