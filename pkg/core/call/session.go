package call

import (
	"context"
	"sync"

	"github.com/google/uuid"

	vox "github.com/vango-go/vox-console/sdk"

	"github.com/vango-go/vox-console/pkg/core"
	"github.com/vango-go/vox-console/pkg/realtime"
)

// Controller runs call sessions. One call at a time: starting while a call
// is active fails instead of silently reconnecting.
type Controller struct {
	cfg Config

	mu            sync.Mutex
	state         State
	documentID    string
	chat          []ChatMessage
	agentSpeaking bool
	session       *activeSession
}

type activeSession struct {
	room    RoomSession
	capture AudioSource
	player  AudioSink
	events  chan Event
	done    chan struct{}
}

// NewController returns a Controller wired to cfg.
func NewController(cfg Config) *Controller {
	return &Controller{cfg: cfg.withDefaults()}
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// DocumentID returns the transcript document id of the current or most
// recent call. Empty when no call has been issued credentials yet.
func (c *Controller) DocumentID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.documentID
}

// AgentSpeaking reports whether the agent's audio track is live.
func (c *Controller) AgentSpeaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.agentSpeaking
}

// Chat returns a snapshot of data messages received during the current call.
func (c *Controller) Chat() []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChatMessage, len(c.chat))
	copy(out, c.chat)
	return out
}

// Start establishes a new call: issues credentials with the given agent
// settings, joins the room, and starts publishing the microphone. The
// returned channel delivers session events and is closed on teardown.
//
// Start fails if a call is already connecting or connected. On any setup
// failure every resource acquired so far is released and the controller
// returns to idle; there is never a half-open session.
func (c *Controller) Start(ctx context.Context, settings Settings) (<-chan Event, error) {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return nil, core.NewInvalidRequestError("call already active")
	}
	c.state = StateConnecting
	c.mu.Unlock()

	fail := func() {
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()
	}

	userID := "user-" + shortID()
	roomID := "room-" + shortID()

	cred, err := c.cfg.Issuer.Issue(ctx, &vox.CredentialRequest{
		Room:         roomID,
		User:         userID,
		Prompt:       settings.Prompt,
		Instructions: settings.Instructions,
	})
	if err != nil {
		fail()
		return nil, err
	}
	documentID := cred.ResolveDocumentID()
	if documentID == "" {
		c.cfg.Logger.Warn("credential carried no document id; transcript will be unavailable")
	}

	room, err := c.cfg.DialRoom(ctx, c.cfg.RealtimeURL, realtime.DialOptions{
		Token:          cred.Token,
		AudioIn:        c.cfg.AudioIn,
		AudioOut:       c.cfg.AudioOut,
		ConnectTimeout: c.cfg.ConnectTimeout,
	})
	if err != nil {
		fail()
		return nil, err
	}

	capture, err := c.cfg.OpenCapture(c.cfg.AudioIn.SampleRateHz, c.cfg.AudioIn.Channels)
	if err != nil {
		_ = room.Close()
		fail()
		return nil, core.NewConnectError("open microphone", err)
	}

	var player AudioSink
	if c.cfg.OpenPlayer != nil {
		player, err = c.cfg.OpenPlayer(c.cfg.AudioOut.SampleRateHz, c.cfg.AudioOut.Channels)
		if err != nil {
			// A broken speaker should not kill the call; run without playback.
			c.cfg.Logger.Warn("speaker unavailable, continuing without playback", "error", err)
			player = nil
		}
	}

	s := &activeSession{
		room:    room,
		capture: capture,
		player:  player,
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
	}

	c.mu.Lock()
	c.session = s
	c.state = StateConnected
	c.documentID = documentID
	c.chat = nil
	c.agentSpeaking = false
	c.mu.Unlock()

	c.emit(s, ConnectedEvent{Room: roomID, DocumentID: documentID, Participant: userID})
	go c.eventLoop(s)
	go c.micLoop(s)
	return s.events, nil
}

// Stop tears the current call down: microphone first, then the room, then
// the speaker. The chat transcript is cleared. It returns the document id of
// the call that just ended so the transcript can be fetched. Stop on an
// inactive controller is a no-op.
func (c *Controller) Stop() string {
	c.mu.Lock()
	s := c.session
	documentID := c.documentID
	if s == nil {
		c.mu.Unlock()
		return documentID
	}
	c.session = nil
	c.state = StateDisconnected
	c.chat = nil
	c.agentSpeaking = false
	c.mu.Unlock()

	_ = s.capture.Close()
	_ = s.room.Close()
	<-s.done
	if s.player != nil {
		_ = s.player.Close()
	}
	return documentID
}

func (c *Controller) micLoop(s *activeSession) {
	frame := make([]byte, frameBytes(c.cfg.AudioIn))
	var seq int64
	for {
		n, err := s.capture.Read(frame)
		if err != nil || n == 0 {
			return
		}
		seq++
		if err := s.room.PublishAudioFrame(frame[:n], seq); err != nil {
			return
		}
	}
}

func (c *Controller) eventLoop(s *activeSession) {
	for event := range s.room.Events() {
		switch e := event.(type) {
		case realtime.TrackSubscribedEvent:
			if e.Kind != realtime.TrackKindAudio {
				continue
			}
			c.mu.Lock()
			c.agentSpeaking = true
			c.mu.Unlock()
			c.emit(s, AgentSpeakingStartedEvent{Participant: e.Participant})
		case realtime.TrackUnsubscribedEvent:
			if e.Kind != realtime.TrackKindAudio {
				continue
			}
			c.mu.Lock()
			c.agentSpeaking = false
			c.mu.Unlock()
			if s.player != nil {
				s.player.Flush()
			}
			c.emit(s, AgentSpeakingStoppedEvent{Participant: e.Participant})
		case realtime.DataEvent:
			message := ChatMessage{Sender: e.Participant, Text: string(e.Payload)}
			c.mu.Lock()
			c.chat = append(c.chat, message)
			c.mu.Unlock()
			c.emit(s, ChatMessageEvent{Sender: message.Sender, Text: message.Text})
		case realtime.AudioChunkEvent:
			if s.player != nil {
				s.player.Write(e.Data)
			}
		case realtime.ErrorEvent:
			c.cfg.Logger.Warn("room error", "code", e.Err.Code, "message", e.Err.Message)
		}
	}

	c.mu.Lock()
	remoteTeardown := c.session == s
	if remoteTeardown {
		// The server closed the room underneath us.
		c.session = nil
		c.state = StateDisconnected
		c.agentSpeaking = false
	}
	c.mu.Unlock()
	if remoteTeardown {
		_ = s.capture.Close()
		if s.player != nil {
			_ = s.player.Close()
		}
	}

	c.emit(s, DisconnectedEvent{})
	close(s.events)
	close(s.done)
}

func (c *Controller) emit(s *activeSession, event Event) {
	select {
	case s.events <- event:
	default:
		// Do not let a stalled consumer block the room read path.
	}
}

func shortID() string {
	return uuid.NewString()[:8]
}

func frameBytes(format realtime.AudioFormat) int {
	// 20ms of signed 16-bit PCM.
	n := format.SampleRateHz * format.Channels * 2 / 50
	if n <= 0 {
		n = 640
	}
	return n
}
