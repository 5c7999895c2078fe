package bridge

import "github.com/book-expert/gsv2p-tts/internal/plugin"

// InboundMessage is a chat message published by the host.
type InboundMessage struct {
	MessageID  string             `json:"message_id"`
	ChatID     string             `json:"chat_id"`
	UserID     string             `json:"user_id,omitempty"`
	Text       string             `json:"text"`
	ActionData *plugin.ActionData `json:"action_data,omitempty"`
}

// OutboundMessage asks the host to deliver a reply to a chat. Type is
// core.MessageTypeText or core.MessageTypeVoiceURL.
type OutboundMessage struct {
	MessageID string `json:"message_id"`
	ChatID    string `json:"chat_id"`
	ReplyTo   string `json:"reply_to,omitempty"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	// AudioKey names the voice file in the object store, when one is used.
	AudioKey string `json:"audio_key,omitempty"`
}

// DispatchReply answers an inbound message sent with request/reply.
type DispatchReply struct {
	Trigger string `json:"trigger"`
	Success bool   `json:"success"`
	Status  string `json:"status"`
}
