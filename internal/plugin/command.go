package plugin

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/book-expert/gsv2p-tts/internal/core"
)

// Command surface: /gsv2p <text> [voice].
const (
	CommandPrefix  = "/gsv2p"
	CommandPattern = `^/gsv2p\s+(?P<text>.+?)(?:\s+(?P<voice>\S+))?$`
	CommandHelp    = "使用GSV2P将文本转换为语音。用法：/gsv2p 你好世界 [音色]"
)

// CommandExamples lists sample invocations shown in help output.
var CommandExamples = []string{
	"/gsv2p 你好，世界！",
	"/gsv2p 今天天气不错 voice1",
	"/gsv2p こんにちは voice2",
}

var commandRegexp = regexp.MustCompile(CommandPattern)

// CommandArgs are the groups captured from a /gsv2p command.
type CommandArgs struct {
	Text  string
	Voice string
}

// IsCommand reports whether message addresses the /gsv2p command, with or
// without arguments.
func IsCommand(message string) bool {
	trimmed := strings.TrimSpace(message)
	if !strings.HasPrefix(trimmed, CommandPrefix) {
		return false
	}

	rest := trimmed[len(CommandPrefix):]

	return rest == "" || unicode.IsSpace([]rune(rest)[0])
}

// ParseCommand extracts text and the optional trailing voice token. The voice
// is the last whitespace-free token, so "/gsv2p hello world" reads "world" as
// the voice.
func ParseCommand(message string) (CommandArgs, bool) {
	match := commandRegexp.FindStringSubmatch(strings.TrimSpace(message))
	if match == nil {
		return CommandArgs{}, false
	}

	return CommandArgs{
		Text:  strings.TrimSpace(match[commandRegexp.SubexpIndex("text")]),
		Voice: match[commandRegexp.SubexpIndex("voice")],
	}, true
}

// HandleCommand runs the command trigger on a raw message. A bare "/gsv2p"
// reaches the missing-text reply.
func (p *Plugin) HandleCommand(ctx context.Context, messenger core.Messenger, message string) (bool, string) {
	args, _ := ParseCommand(message)

	return p.synthesize(ctx, messenger, args.Text, args.Voice, msgCommandMissingText, CommandName)
}
