// Package realtime implements the websocket media room protocol used for
// live calls: a JSON control channel plus binary PCM audio frames prefixed
// by a JSON chunk header.
package realtime

import "encoding/json"

const ProtocolVersion1 = 1

// AudioFormat describes a PCM stream on either side of the room.
type AudioFormat struct {
	Encoding     string `json:"encoding"`
	SampleRateHz int    `json:"sample_rate_hz"`
	Channels     int    `json:"channels"`
}

// TrackKind identifies what a remote participant is publishing.
type TrackKind string

const (
	TrackKindAudio TrackKind = "audio"
	TrackKindVideo TrackKind = "video"
)

// ClientJoin is the first frame sent after the websocket is established.
// The room and participant identity are carried inside the access token.
type ClientJoin struct {
	Type            string      `json:"type"`
	ProtocolVersion int         `json:"protocol_version"`
	Token           string      `json:"token"`
	AudioIn         AudioFormat `json:"audio_in"`
	AudioOut        AudioFormat `json:"audio_out"`
}

// ClientAudioFrame carries one microphone PCM frame upstream.
type ClientAudioFrame struct {
	Type    string `json:"type"`
	Seq     int64  `json:"seq"`
	DataB64 string `json:"data_b64"`
}

// ClientLeave requests a graceful room departure.
type ClientLeave struct {
	Type string `json:"type"`
}

// ServerJoinAck confirms admission to the room.
type ServerJoinAck struct {
	Type        string `json:"type"`
	Room        string `json:"room"`
	Participant string `json:"participant"`
	SessionID   string `json:"session_id"`
}

// ServerTrackSubscribed announces a remote track becoming available.
type ServerTrackSubscribed struct {
	Type        string    `json:"type"`
	Kind        TrackKind `json:"kind"`
	Participant string    `json:"participant"`
	TrackID     string    `json:"track_id"`
}

// ServerTrackUnsubscribed announces a remote track going away.
type ServerTrackUnsubscribed struct {
	Type        string    `json:"type"`
	Kind        TrackKind `json:"kind"`
	Participant string    `json:"participant"`
	TrackID     string    `json:"track_id"`
}

// ServerData carries an application data message from another participant.
type ServerData struct {
	Type        string `json:"type"`
	Participant string `json:"participant"`
	PayloadB64  string `json:"payload_b64"`
}

// ServerAudioChunkHeader precedes one binary PCM frame on the wire. The next
// binary websocket message belongs to this header.
type ServerAudioChunkHeader struct {
	Type        string `json:"type"`
	TrackID     string `json:"track_id"`
	Participant string `json:"participant"`
	Seq         int64  `json:"seq"`
}

// ServerError is a terminal protocol error from the media server.
type ServerError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Event is a room event emitted by Room.Events().
type Event interface {
	eventType() string
}

// JoinAckEvent is emitted once after a successful join handshake.
type JoinAckEvent struct{ Ack ServerJoinAck }

func (e JoinAckEvent) eventType() string { return "join_ack" }

// TrackSubscribedEvent is emitted when a remote participant publishes a track.
type TrackSubscribedEvent struct {
	Kind        TrackKind
	Participant string
	TrackID     string
}

func (e TrackSubscribedEvent) eventType() string { return "track_subscribed" }

// TrackUnsubscribedEvent is emitted when a remote track ends.
type TrackUnsubscribedEvent struct {
	Kind        TrackKind
	Participant string
	TrackID     string
}

func (e TrackUnsubscribedEvent) eventType() string { return "track_unsubscribed" }

// DataEvent carries a decoded data message from another participant.
type DataEvent struct {
	Participant string
	Payload     []byte
}

func (e DataEvent) eventType() string { return "data" }

// AudioChunkEvent carries one decoded PCM frame from a remote track.
type AudioChunkEvent struct {
	TrackID     string
	Participant string
	Seq         int64
	Data        []byte
}

func (e AudioChunkEvent) eventType() string { return "audio_chunk" }

// ErrorEvent surfaces a server-reported protocol error.
type ErrorEvent struct{ Err ServerError }

func (e ErrorEvent) eventType() string { return "error" }

// UnknownEvent preserves frames this client version does not understand.
type UnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (e UnknownEvent) eventType() string { return e.Type }
