package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-go/vox-console/pkg/core"
)

const defaultConnectTimeout = 15 * time.Second

// DialOptions configures a room connection.
type DialOptions struct {
	// Token authenticates the participant; room and identity are claims
	// inside it.
	Token string

	// AudioIn is the format of microphone frames the client will publish.
	AudioIn AudioFormat

	// AudioOut is the format the client wants remote audio delivered in.
	AudioOut AudioFormat

	// ConnectTimeout bounds the dial plus join handshake when the context
	// carries no deadline. Zero means a 15 second default.
	ConnectTimeout time.Duration
}

// Room is a connected media room session. Events are delivered on Events()
// until the room is closed or the connection fails; the channel is closed on
// teardown either way.
type Room struct {
	conn *websocket.Conn

	ack    ServerJoinAck
	events chan Event
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

// Dial connects to the media server, performs the join handshake, and starts
// the read loop. The returned Room is live; callers must Close it.
func Dial(ctx context.Context, wsURL string, opts DialOptions) (*Room, error) {
	wsURL = strings.TrimSpace(wsURL)
	if wsURL == "" {
		return nil, core.NewInvalidRequestError("room url must not be empty")
	}
	if strings.TrimSpace(opts.Token) == "" {
		return nil, core.NewInvalidRequestError("room token must not be empty")
	}

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, core.NewConnectError("room dial failed", fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err))
		}
		return nil, core.NewConnectError("room dial failed", err)
	}

	join := ClientJoin{
		Type:            "join",
		ProtocolVersion: ProtocolVersion1,
		Token:           opts.Token,
		AudioIn:         opts.AudioIn,
		AudioOut:        opts.AudioOut,
	}
	if err := conn.WriteJSON(join); err != nil {
		_ = conn.Close()
		return nil, core.NewConnectError("send join", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	messageType, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, core.NewConnectError("read join_ack", err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	if messageType != websocket.TextMessage {
		_ = conn.Close()
		return nil, core.NewConnectError(fmt.Sprintf("unexpected first room frame type %d", messageType), nil)
	}

	firstEvent, err := decodeTextFrame(payload, new(*ServerAudioChunkHeader))
	if err != nil {
		_ = conn.Close()
		return nil, core.NewConnectError("decode join_ack", err)
	}
	if firstEvent == nil {
		// Header-only frames decode to no event; before join_ack that is
		// an out-of-order frame, not a session.
		_ = conn.Close()
		return nil, core.NewConnectError("unexpected first room frame before join_ack", nil)
	}
	switch e := firstEvent.(type) {
	case JoinAckEvent:
		room := &Room{
			conn:   conn,
			ack:    e.Ack,
			events: make(chan Event, 256),
			done:   make(chan struct{}),
		}
		room.emit(e)
		go room.readLoop()
		return room, nil
	case ErrorEvent:
		_ = conn.Close()
		return nil, &core.Error{
			Type:    core.ErrConnect,
			Message: strings.TrimSpace(e.Err.Message),
			Code:    strings.TrimSpace(e.Err.Code),
		}
	default:
		_ = conn.Close()
		return nil, core.NewConnectError(fmt.Sprintf("unexpected first room frame %q", firstEvent.eventType()), nil)
	}
}

// Ack returns the join acknowledgement received during the handshake.
func (r *Room) Ack() ServerJoinAck {
	if r == nil {
		return ServerJoinAck{}
	}
	return r.ack
}

// Events yields room events. The channel is closed when the room tears down.
func (r *Room) Events() <-chan Event {
	if r == nil {
		return nil
	}
	return r.events
}

// PublishAudioFrame sends one microphone PCM frame upstream.
func (r *Room) PublishAudioFrame(pcm []byte, seq int64) error {
	if r == nil {
		return fmt.Errorf("room must not be nil")
	}
	frame := ClientAudioFrame{
		Type:    "audio_frame",
		Seq:     seq,
		DataB64: base64.StdEncoding.EncodeToString(pcm),
	}
	return r.sendJSON(frame)
}

// Leave requests a graceful departure. The server replies by closing the
// connection, which ends the read loop.
func (r *Room) Leave() error {
	if r == nil {
		return fmt.Errorf("room must not be nil")
	}
	return r.sendJSON(ClientLeave{Type: "leave"})
}

func (r *Room) sendJSON(v any) error {
	if r.closed.Load() {
		return fmt.Errorf("room is closed")
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.conn.WriteJSON(v)
}

// Close closes the websocket and waits for the read loop to finish.
func (r *Room) Close() error {
	if r == nil {
		return nil
	}
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		r.writeMu.Lock()
		_ = r.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		r.writeMu.Unlock()
		_ = r.conn.Close()
	})
	<-r.done
	return nil
}

// Err returns the terminal room error, if any. It blocks until teardown.
func (r *Room) Err() error {
	if r == nil {
		return nil
	}
	<-r.done
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.err
}

func (r *Room) setErr(err error) {
	if err == nil {
		return
	}
	r.errMu.Lock()
	defer r.errMu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

func (r *Room) readLoop() {
	defer close(r.done)
	defer close(r.events)

	var pendingBinaryHeader *ServerAudioChunkHeader

	for {
		messageType, data, err := r.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			if r.closed.Load() {
				return
			}
			r.setErr(err)
			return
		}

		switch messageType {
		case websocket.TextMessage:
			event, frameErr := decodeTextFrame(data, &pendingBinaryHeader)
			if frameErr != nil {
				r.setErr(frameErr)
				return
			}
			if event != nil {
				r.emit(event)
				if errEvent, ok := event.(ErrorEvent); ok {
					r.setErr(&core.Error{
						Type:    core.ErrConnect,
						Message: strings.TrimSpace(errEvent.Err.Message),
						Code:    strings.TrimSpace(errEvent.Err.Code),
					})
				}
			}
		case websocket.BinaryMessage:
			if pendingBinaryHeader == nil {
				continue
			}
			chunk := AudioChunkEvent{
				TrackID:     pendingBinaryHeader.TrackID,
				Participant: pendingBinaryHeader.Participant,
				Seq:         pendingBinaryHeader.Seq,
				Data:        append([]byte(nil), data...),
			}
			pendingBinaryHeader = nil
			r.emit(chunk)
		default:
			continue
		}
	}
}

func (r *Room) emit(event Event) {
	if event == nil {
		return
	}
	select {
	case r.events <- event:
	default:
		// Avoid deadlocking the read loop if the caller stops consuming.
	}
}

func decodeTextFrame(data []byte, pendingBinaryHeader **ServerAudioChunkHeader) (Event, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode room frame envelope: %w", err)
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, fmt.Errorf("room frame missing type")
	}

	switch typ {
	case "join_ack":
		var ack ServerJoinAck
		if err := json.Unmarshal(data, &ack); err != nil {
			return nil, fmt.Errorf("decode join_ack: %w", err)
		}
		return JoinAckEvent{Ack: ack}, nil
	case "track_subscribed":
		var sub ServerTrackSubscribed
		if err := json.Unmarshal(data, &sub); err != nil {
			return nil, fmt.Errorf("decode track_subscribed: %w", err)
		}
		return TrackSubscribedEvent{
			Kind:        sub.Kind,
			Participant: sub.Participant,
			TrackID:     sub.TrackID,
		}, nil
	case "track_unsubscribed":
		var unsub ServerTrackUnsubscribed
		if err := json.Unmarshal(data, &unsub); err != nil {
			return nil, fmt.Errorf("decode track_unsubscribed: %w", err)
		}
		return TrackUnsubscribedEvent{
			Kind:        unsub.Kind,
			Participant: unsub.Participant,
			TrackID:     unsub.TrackID,
		}, nil
	case "data":
		var msg ServerData
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode data frame: %w", err)
		}
		payload, err := base64.StdEncoding.DecodeString(msg.PayloadB64)
		if err != nil {
			return nil, fmt.Errorf("decode data payload: %w", err)
		}
		return DataEvent{Participant: msg.Participant, Payload: payload}, nil
	case "audio_chunk_header":
		var header ServerAudioChunkHeader
		if err := json.Unmarshal(data, &header); err != nil {
			return nil, fmt.Errorf("decode audio_chunk_header: %w", err)
		}
		*pendingBinaryHeader = &header
		return nil, nil
	case "error":
		var serverErr ServerError
		if err := json.Unmarshal(data, &serverErr); err != nil {
			return nil, fmt.Errorf("decode error frame: %w", err)
		}
		return ErrorEvent{Err: serverErr}, nil
	default:
		return UnknownEvent{
			Type: typ,
			Raw:  append(json.RawMessage(nil), data...),
		}, nil
	}
}
