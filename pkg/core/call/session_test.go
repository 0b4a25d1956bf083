package call

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	vox "github.com/vango-go/vox-console/sdk"

	"github.com/vango-go/vox-console/pkg/core"
	"github.com/vango-go/vox-console/pkg/realtime"
)

type fakeIssuer struct {
	err  error
	cred *vox.Credential

	mu   sync.Mutex
	last *vox.CredentialRequest
}

func (f *fakeIssuer) Issue(ctx context.Context, req *vox.CredentialRequest) (*vox.Credential, error) {
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.cred, nil
}

type fakeRoom struct {
	events chan realtime.Event

	mu        sync.Mutex
	closed    bool
	published [][]byte
}

func newFakeRoom() *fakeRoom {
	return &fakeRoom{events: make(chan realtime.Event, 32)}
}

func (f *fakeRoom) Events() <-chan realtime.Event { return f.events }

func (f *fakeRoom) PublishAudioFrame(pcm []byte, seq int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("room is closed")
	}
	f.published = append(f.published, append([]byte(nil), pcm...))
	return nil
}

func (f *fakeRoom) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

func (f *fakeRoom) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeCapture struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
}

func newFakeCapture() *fakeCapture {
	f := &fakeCapture{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *fakeCapture) feed(pcm []byte) {
	f.mu.Lock()
	f.buf = append(f.buf, pcm...)
	f.mu.Unlock()
	f.cond.Signal()
}

func (f *fakeCapture) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.buf) == 0 && !f.closed {
		f.cond.Wait()
	}
	if f.closed && len(f.buf) == 0 {
		return 0, nil
	}
	n := copy(p, f.buf)
	f.buf = f.buf[n:]
	return n, nil
}

func (f *fakeCapture) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.cond.Broadcast()
	return nil
}

func testConfig(issuer *fakeIssuer, room *fakeRoom, capture *fakeCapture) Config {
	return Config{
		RealtimeURL: "ws://media.test",
		Issuer:      issuer,
		DialRoom: func(ctx context.Context, wsURL string, opts realtime.DialOptions) (RoomSession, error) {
			return room, nil
		},
		OpenCapture: func(sampleRate, channels int) (AudioSource, error) {
			return capture, nil
		},
	}
}

func waitForEvent[T Event](t *testing.T, events <-chan Event) T {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case event, ok := <-events:
			if !ok {
				t.Fatalf("events channel closed while waiting for %T", *new(T))
			}
			if typed, match := event.(T); match {
				return typed
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %T", *new(T))
		}
	}
}

func TestStart_EstablishesSessionAndStopTearsDown(t *testing.T) {
	t.Parallel()

	issuer := &fakeIssuer{cred: &vox.Credential{Token: "tok", DocumentID: "doc-1"}}
	room := newFakeRoom()
	capture := newFakeCapture()
	controller := NewController(testConfig(issuer, room, capture))

	events, err := controller.Start(context.Background(), Settings{Prompt: "p", Instructions: "i"})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if controller.State() != StateConnected {
		t.Fatalf("State() = %v, want connected", controller.State())
	}

	connected := waitForEvent[ConnectedEvent](t, events)
	if connected.DocumentID != "doc-1" {
		t.Fatalf("ConnectedEvent.DocumentID = %q, want doc-1", connected.DocumentID)
	}

	issuer.mu.Lock()
	req := issuer.last
	issuer.mu.Unlock()
	if req.Prompt != "p" || req.Instructions != "i" {
		t.Fatalf("credential request = %+v, want settings carried through", req)
	}

	docID := controller.Stop()
	if docID != "doc-1" {
		t.Fatalf("Stop() = %q, want doc-1", docID)
	}
	if controller.State() != StateDisconnected {
		t.Fatalf("State() after Stop = %v, want disconnected", controller.State())
	}
	if !room.isClosed() {
		t.Fatalf("room was not closed on Stop")
	}

	// The events channel must close so consumers terminate.
	for range events {
	}
}

func TestStart_SecondStartWhileActiveFails(t *testing.T) {
	t.Parallel()

	issuer := &fakeIssuer{cred: &vox.Credential{Token: "tok", DocumentID: "doc-1"}}
	room := newFakeRoom()
	capture := newFakeCapture()
	controller := NewController(testConfig(issuer, room, capture))

	if _, err := controller.Start(context.Background(), Settings{}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer controller.Stop()

	_, err := controller.Start(context.Background(), Settings{})
	if !core.IsType(err, core.ErrInvalidRequest) {
		t.Fatalf("second Start() error = %v, want invalid_request_error", err)
	}
}

func TestStart_CredentialFailureReturnsToIdle(t *testing.T) {
	t.Parallel()

	issuer := &fakeIssuer{err: core.NewConnectError("token endpoint unreachable", nil)}
	controller := NewController(testConfig(issuer, newFakeRoom(), newFakeCapture()))

	_, err := controller.Start(context.Background(), Settings{})
	if !core.IsType(err, core.ErrConnect) {
		t.Fatalf("Start() error = %v, want connect_error", err)
	}
	if controller.State() != StateIdle {
		t.Fatalf("State() = %v, want idle after failure", controller.State())
	}

	// The controller must be startable again after a failed attempt.
	issuer.err = nil
	issuer.cred = &vox.Credential{Token: "tok"}
	if _, err := controller.Start(context.Background(), Settings{}); err != nil {
		t.Fatalf("retry Start() error = %v", err)
	}
	controller.Stop()
}

func TestStart_CaptureFailureClosesRoom(t *testing.T) {
	t.Parallel()

	issuer := &fakeIssuer{cred: &vox.Credential{Token: "tok"}}
	room := newFakeRoom()
	cfg := testConfig(issuer, room, nil)
	cfg.OpenCapture = func(sampleRate, channels int) (AudioSource, error) {
		return nil, errors.New("no capture device")
	}
	controller := NewController(cfg)

	_, err := controller.Start(context.Background(), Settings{})
	if !core.IsType(err, core.ErrConnect) {
		t.Fatalf("Start() error = %v, want connect_error", err)
	}
	if !room.isClosed() {
		t.Fatalf("room must be closed when capture setup fails")
	}
	if controller.State() != StateIdle {
		t.Fatalf("State() = %v, want idle", controller.State())
	}
}

func TestSession_MicrophoneFramesReachRoom(t *testing.T) {
	t.Parallel()

	issuer := &fakeIssuer{cred: &vox.Credential{Token: "tok"}}
	room := newFakeRoom()
	capture := newFakeCapture()
	controller := NewController(testConfig(issuer, room, capture))

	if _, err := controller.Start(context.Background(), Settings{}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer controller.Stop()

	capture.feed([]byte{0x01, 0x02, 0x03, 0x04})

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		room.mu.Lock()
		n := len(room.published)
		room.mu.Unlock()
		if n > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("microphone frame never reached the room")
}

func TestSession_ChatMessagesAccumulateAndClearOnStop(t *testing.T) {
	t.Parallel()

	issuer := &fakeIssuer{cred: &vox.Credential{Token: "tok"}}
	room := newFakeRoom()
	capture := newFakeCapture()
	controller := NewController(testConfig(issuer, room, capture))

	events, err := controller.Start(context.Background(), Settings{})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	room.events <- realtime.DataEvent{Participant: "agent-1", Payload: []byte("hello")}
	chat := waitForEvent[ChatMessageEvent](t, events)
	if chat.Sender != "agent-1" || chat.Text != "hello" {
		t.Fatalf("ChatMessageEvent = %+v, want agent-1/hello", chat)
	}
	if got := controller.Chat(); len(got) != 1 || got[0].Text != "hello" {
		t.Fatalf("Chat() = %+v, want one message", got)
	}

	controller.Stop()
	if got := controller.Chat(); len(got) != 0 {
		t.Fatalf("Chat() after Stop = %+v, want empty", got)
	}
}

func TestSession_AgentSpeakingTracksAudioTrack(t *testing.T) {
	t.Parallel()

	issuer := &fakeIssuer{cred: &vox.Credential{Token: "tok"}}
	room := newFakeRoom()
	capture := newFakeCapture()
	controller := NewController(testConfig(issuer, room, capture))

	events, err := controller.Start(context.Background(), Settings{})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer controller.Stop()

	room.events <- realtime.TrackSubscribedEvent{Kind: realtime.TrackKindAudio, Participant: "agent-1"}
	waitForEvent[AgentSpeakingStartedEvent](t, events)
	if !controller.AgentSpeaking() {
		t.Fatalf("AgentSpeaking() = false, want true after track subscribe")
	}

	room.events <- realtime.TrackUnsubscribedEvent{Kind: realtime.TrackKindAudio, Participant: "agent-1"}
	waitForEvent[AgentSpeakingStoppedEvent](t, events)
	if controller.AgentSpeaking() {
		t.Fatalf("AgentSpeaking() = true, want false after track unsubscribe")
	}
}

func TestSession_RemoteTeardownEmitsDisconnected(t *testing.T) {
	t.Parallel()

	issuer := &fakeIssuer{cred: &vox.Credential{Token: "tok"}}
	room := newFakeRoom()
	capture := newFakeCapture()
	controller := NewController(testConfig(issuer, room, capture))

	events, err := controller.Start(context.Background(), Settings{})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	room.Close()
	waitForEvent[DisconnectedEvent](t, events)

	deadline := time.Now().Add(3 * time.Second)
	for controller.State() != StateDisconnected {
		if time.Now().After(deadline) {
			t.Fatalf("State() = %v, want disconnected after remote teardown", controller.State())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
