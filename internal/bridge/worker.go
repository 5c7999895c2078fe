// Package bridge connects the plugin to a chat host over NATS: inbound chat
// messages are dispatched to the plugin and its replies are published back.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/book-expert/gsv2p-tts/internal/config"
	"github.com/book-expert/gsv2p-tts/internal/core"
	"github.com/book-expert/gsv2p-tts/internal/plugin"
	"github.com/book-expert/gsv2p-tts/internal/tts"
)

const (
	drainPollInterval = 10 * time.Millisecond
	drainTimeout      = 5 * time.Second
)

// handleSlack is added to the configured API timeout to bound the whole
// handling of one message, including replies.
const handleSlack = 15 * time.Second

var (
	// ErrInboundSubjectEmpty indicates that no inbound subject is configured.
	ErrInboundSubjectEmpty = errors.New("inbound subject cannot be empty")
	// ErrOutboundSubjectEmpty indicates that no outbound subject is configured.
	ErrOutboundSubjectEmpty = errors.New("outbound subject cannot be empty")
	// ErrChatIDEmpty indicates an inbound message without a chat to reply to.
	ErrChatIDEmpty = errors.New("chat id cannot be empty")
)

// Dispatcher runs the plugin triggers for one message.
type Dispatcher interface {
	Dispatch(ctx context.Context, messenger core.Messenger, message plugin.Message) plugin.Outcome
}

// Options configure a NatsWorker.
type Options struct {
	InboundSubject  string
	OutboundSubject string
	QueueGroup      string
	// Store, when set, receives every voice file and EventSubject is told
	// about each upload.
	Store        core.ObjectStore
	EventSubject string
}

// NatsWorker listens for chat messages on a NATS subject and dispatches them
// to the plugin. Messages are handled concurrently.
type NatsWorker struct {
	natsConnection *nats.Conn
	opts           Options
	dispatcher     Dispatcher
	cfg            core.ConfigSource
	log            core.Logger
	inFlight       sync.WaitGroup
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	opts Options,
	dispatcher Dispatcher,
	cfg core.ConfigSource,
	log core.Logger,
) (*NatsWorker, error) {
	if opts.InboundSubject == "" {
		return nil, ErrInboundSubjectEmpty
	}

	if opts.OutboundSubject == "" {
		return nil, ErrOutboundSubjectEmpty
	}

	return &NatsWorker{
		natsConnection: natsConnection,
		opts:           opts,
		dispatcher:     dispatcher,
		cfg:            cfg,
		log:            log,
	}, nil
}

// Run subscribes and handles messages until ctx is done, then drains the
// subscription and waits for in-flight messages.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.QueueSubscribe(w.opts.InboundSubject, w.opts.QueueGroup, func(msg *nats.Msg) {
		w.inFlight.Add(1)

		go func() {
			defer w.inFlight.Done()

			w.handleMessage(msg)
		}()
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.opts.InboundSubject, err)
	}

	w.log.Info("Listening for chat messages on subject: %s", w.opts.InboundSubject)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr == nil {
		waitDrained(sub)
	}

	w.inFlight.Wait()

	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

// waitDrained blocks until the drained subscription stops delivering, so no
// handler starts after the in-flight wait begins.
func waitDrained(sub *nats.Subscription) {
	deadline := time.Now().Add(drainTimeout)

	for sub.IsValid() && time.Now().Before(deadline) {
		time.Sleep(drainPollInterval)
	}
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	inbound, err := parseAndValidateMessage(msg)
	if err != nil {
		w.log.Error("Failed to parse and validate chat message: %v", err)
		w.respond(msg, DispatchReply{Status: err.Error()})

		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.handleTimeout())
	defer cancel()

	messenger := &natsMessenger{
		conn:    w.natsConnection,
		subject: w.opts.OutboundSubject,
		inbound: *inbound,
	}

	if w.opts.Store != nil {
		messenger.audio = &audioArchive{store: w.opts.Store, eventSubject: w.opts.EventSubject}
	}

	outcome := w.dispatcher.Dispatch(ctx, messenger, plugin.Message{
		Text:   inbound.Text,
		Action: inbound.ActionData,
	})

	if outcome.Trigger != plugin.TriggerNone {
		w.log.Info("Message %s handled by %s trigger: success=%t, status=%s",
			inbound.MessageID, outcome.Trigger, outcome.Success, outcome.Status)
	}

	w.respond(msg, DispatchReply{
		Trigger: string(outcome.Trigger),
		Success: outcome.Success,
		Status:  outcome.Status,
	})
}

func (w *NatsWorker) handleTimeout() time.Duration {
	seconds := config.Float(w.cfg, tts.KeyTimeout, config.DefaultTimeoutSeconds)

	return time.Duration(seconds*float64(time.Second)) + handleSlack
}

// respond answers request/reply callers; plain publishes are left alone.
func (w *NatsWorker) respond(msg *nats.Msg, reply DispatchReply) {
	if msg.Reply == "" {
		return
	}

	replyData, err := json.Marshal(reply)
	if err != nil {
		w.log.Error("Failed to marshal dispatch reply: %v", err)

		return
	}

	err = msg.Respond(replyData)
	if err != nil {
		w.log.Error("Failed to publish dispatch reply: %v", err)
	}
}

func parseAndValidateMessage(msg *nats.Msg) (*InboundMessage, error) {
	var inbound InboundMessage

	err := json.Unmarshal(msg.Data, &inbound)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat message: %w", err)
	}

	if inbound.ChatID == "" {
		return nil, ErrChatIDEmpty
	}

	return &inbound, nil
}
