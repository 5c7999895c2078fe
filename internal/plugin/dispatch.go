package plugin

import (
	"context"

	"github.com/book-expert/gsv2p-tts/internal/core"
)

// Trigger names which handler a message was routed to.
type Trigger string

// Triggers.
const (
	TriggerNone    Trigger = ""
	TriggerAction  Trigger = "action"
	TriggerCommand Trigger = "command"
)

// Message is an inbound chat message as seen by the plugin.
type Message struct {
	Text string
	// Action carries planner-provided action arguments. When set, the
	// message is routed to the action trigger without keyword matching.
	Action *ActionData
}

// Outcome is what a dispatched message produced.
type Outcome struct {
	Trigger Trigger
	Success bool
	Status  string
}

// Route decides which trigger, if any, handles message under the current
// enable flags. Commands take precedence over keywords.
func (p *Plugin) Route(message Message) (Trigger, ActionData) {
	if message.Action != nil {
		if p.actionEnabled() {
			return TriggerAction, *message.Action
		}

		return TriggerNone, ActionData{}
	}

	if IsCommand(message.Text) {
		if p.commandEnabled() {
			return TriggerCommand, ActionData{}
		}

		return TriggerNone, ActionData{}
	}

	if !p.actionEnabled() {
		return TriggerNone, ActionData{}
	}

	text, matched := ExtractKeywordText(message.Text)
	if !matched {
		return TriggerNone, ActionData{}
	}

	return TriggerAction, ActionData{Text: text}
}

// Dispatch routes message and runs the selected trigger. Messages no trigger
// claims return an Outcome with TriggerNone and send nothing.
func (p *Plugin) Dispatch(ctx context.Context, messenger core.Messenger, message Message) Outcome {
	trigger, data := p.Route(message)

	switch trigger {
	case TriggerCommand:
		ok, status := p.HandleCommand(ctx, messenger, message.Text)

		return Outcome{Trigger: trigger, Success: ok, Status: status}
	case TriggerAction:
		ok, status := p.HandleAction(ctx, messenger, data)

		return Outcome{Trigger: trigger, Success: ok, Status: status}
	default:
		return Outcome{Trigger: TriggerNone}
	}
}
