package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/events"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/gsv2p-tts/internal/core"
)

// natsMessenger implements core.Messenger for one inbound message by
// publishing OutboundMessage values on the outbound subject.
type natsMessenger struct {
	conn    *nats.Conn
	subject string
	inbound InboundMessage
	audio   *audioArchive
}

// audioArchive uploads voice files for hosts that do not share the plugin's
// filesystem and announces each upload.
type audioArchive struct {
	store        core.ObjectStore
	eventSubject string
}

func (m *natsMessenger) SendText(_ context.Context, text string) error {
	return m.publish(OutboundMessage{
		MessageID: uuid.NewString(),
		ChatID:    m.inbound.ChatID,
		ReplyTo:   m.inbound.MessageID,
		Type:      core.MessageTypeText,
		Content:   text,
	})
}

func (m *natsMessenger) SendTyped(ctx context.Context, messageType, content string) error {
	out := OutboundMessage{
		MessageID: uuid.NewString(),
		ChatID:    m.inbound.ChatID,
		ReplyTo:   m.inbound.MessageID,
		Type:      messageType,
		Content:   content,
	}

	if messageType == core.MessageTypeVoiceURL && m.audio != nil {
		key, err := m.archive(ctx, content)
		if err != nil {
			return err
		}

		out.AudioKey = key
	}

	return m.publish(out)
}

func (m *natsMessenger) archive(ctx context.Context, audioPath string) (string, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to read voice file '%s': %w", audioPath, err)
	}

	key := filepath.Base(audioPath)

	err = m.audio.store.Upload(ctx, key, data)
	if err != nil {
		return "", fmt.Errorf("failed to upload voice file for key '%s': %w", key, err)
	}

	if m.audio.eventSubject == "" {
		return key, nil
	}

	event := &events.AudioChunkCreatedEvent{
		Header: events.EventHeader{
			Timestamp:  time.Now(),
			WorkflowID: m.inbound.MessageID,
			EventID:    uuid.NewString(),
			UserID:     m.inbound.UserID,
			TenantID:   m.inbound.ChatID,
		},
		AudioKey:   key,
		PageNumber: 1,
		TotalPages: 1,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal audio event: %w", err)
	}

	err = m.conn.Publish(m.audio.eventSubject, payload)
	if err != nil {
		return "", fmt.Errorf("failed to publish audio event: %w", err)
	}

	return key, nil
}

func (m *natsMessenger) publish(out OutboundMessage) error {
	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal outbound message: %w", err)
	}

	err = m.conn.Publish(m.subject, payload)
	if err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", m.subject, err)
	}

	return nil
}
