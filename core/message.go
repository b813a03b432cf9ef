// Package core defines the chat-platform types exchanged between the
// gateway, the engine, and the memory system.
package core

// Author identifies a conversation participant.
type Author struct {
	// UserID is the platform identifier of the participant.
	UserID string `json:"user_id"`

	// Name is the participant's current display name.
	Name string `json:"name"`
}

// IncomingMessage is one utterance delivered by the chat gateway.
type IncomingMessage struct {
	Author    Author `json:"author"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

// Reply is the engine's response to an incoming message. An empty
// Content means nothing should be sent.
type Reply struct {
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}
