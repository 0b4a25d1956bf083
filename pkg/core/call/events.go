package call

// Event is a call session event emitted by Controller.Events().
type Event interface {
	eventType() string
}

// ConnectedEvent is emitted once the session is fully established.
type ConnectedEvent struct {
	Room        string
	DocumentID  string
	Participant string
}

func (e ConnectedEvent) eventType() string { return "connected" }

// DisconnectedEvent is emitted when the session ends for any reason.
type DisconnectedEvent struct{}

func (e DisconnectedEvent) eventType() string { return "disconnected" }

// AgentSpeakingStartedEvent marks the start of remote agent audio.
type AgentSpeakingStartedEvent struct{ Participant string }

func (e AgentSpeakingStartedEvent) eventType() string { return "agent_speaking_started" }

// AgentSpeakingStoppedEvent marks the end of remote agent audio.
type AgentSpeakingStoppedEvent struct{ Participant string }

func (e AgentSpeakingStoppedEvent) eventType() string { return "agent_speaking_stopped" }

// ChatMessageEvent carries a data message from another participant. The same
// message is also appended to the Chat transcript.
type ChatMessageEvent struct {
	Sender string
	Text   string
}

func (e ChatMessageEvent) eventType() string { return "chat_message" }
