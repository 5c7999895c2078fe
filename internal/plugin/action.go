package plugin

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/book-expert/gsv2p-tts/internal/core"
)

// ActivationKeywords activate the action trigger, matched case-insensitively.
var ActivationKeywords = []string{"语音", "说话", "朗读", "念出来", "用语音说", "gsv2p", "tts"}

// leadingSeparators are dropped between a keyword and the text to speak.
const leadingSeparators = " \t\r\n:：,，、"

var keywordPattern = compileKeywords(ActivationKeywords)

// compileKeywords builds one alternation, longest keyword first, so that at
// a given position "用语音说" wins over "语音".
func compileKeywords(keywords []string) *regexp.Regexp {
	sorted := append([]string(nil), keywords...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})

	quoted := make([]string, len(sorted))
	for i, keyword := range sorted {
		quoted[i] = regexp.QuoteMeta(keyword)
	}

	return regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
}

// ActionData is the input of the keyword trigger. Hosts that plan actions
// supply it directly; otherwise ExtractKeywordText derives it from the raw
// message.
type ActionData struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// ExtractKeywordText removes the first activation keyword from message and
// returns the remaining text. matched is false when no keyword occurs.
func ExtractKeywordText(message string) (text string, matched bool) {
	loc := keywordPattern.FindStringIndex(message)
	if loc == nil {
		return "", false
	}

	before := strings.TrimSpace(message[:loc[0]])
	after := strings.TrimSpace(strings.TrimLeft(message[loc[1]:], leadingSeparators))

	switch {
	case before == "":
		return after, true
	case after == "":
		return before, true
	default:
		return before + " " + after, true
	}
}

// HandleAction runs the keyword trigger.
func (p *Plugin) HandleAction(ctx context.Context, messenger core.Messenger, data ActionData) (bool, string) {
	return p.synthesize(ctx, messenger, data.Text, data.Voice, msgActionMissingText, ActionName)
}
