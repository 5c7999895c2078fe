// Package core defines the interfaces shared between the plugin, the
// synthesis client and the host bridge.
package core

import "context"

// MessageTypeVoiceURL marks a typed message whose content is a path to a
// synthesized voice file.
const MessageTypeVoiceURL = "voiceurl"

// MessageTypeText marks a plain text message.
const MessageTypeText = "text"

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// ConfigSource is the read-only key-value configuration lookup provided by
// the host. Keys are dotted, e.g. "gsv2p.api_url".
type ConfigSource interface {
	Get(key string) (any, bool)
}

// Messenger delivers replies to the chat the triggering message came from.
type Messenger interface {
	SendText(ctx context.Context, text string) error
	SendTyped(ctx context.Context, messageType, content string) error
}

// Logger is the logging sink injected into every component.
// *logger.Logger from github.com/book-expert/logger satisfies it.
type Logger interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}
