// Package plugin implements the two chat triggers of the GSV2P TTS plugin:
// a keyword-activated action and the /gsv2p command. Both share one
// synthesis flow and report (success, status) to the host.
package plugin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/book-expert/gsv2p-tts/internal/config"
	"github.com/book-expert/gsv2p-tts/internal/core"
	"github.com/book-expert/gsv2p-tts/internal/tts"
)

// Plugin metadata.
const (
	Name        = "gsv2p_tts_plugin"
	Version     = "1.0.0"
	Description = "基于GSV2P API的文本转语音插件，支持多种语言和高级语音合成参数"

	ActionName         = "gsv2p_tts_action"
	ActionDescription  = "使用GSV2P模型将文本转换为语音并发送"
	CommandName        = "gsv2p_tts_command"
	CommandDescription = "使用GSV2P模型将文本转换为语音"
)

// Configuration keys for the plugin switches.
const (
	KeyPluginEnabled  = "plugin.enabled"
	KeyActionEnabled  = "components.action_enabled"
	KeyCommandEnabled = "components.command_enabled"
)

// Chat replies.
const (
	msgActionMissingText  = "❌ 请提供要转换为语音的文本内容"
	msgCommandMissingText = "❌ 请输入要转换为语音的文本内容"
	msgMissingToken       = "❌ 请在配置文件中设置API Token"
	msgMissingVoice       = "❌ 请在配置文件中设置默认音色或在命令中指定音色"
	msgSynthesisFailed    = "❌ 语音合成失败，请稍后重试"
	msgFmtSynthesisError  = "❌ 语音合成出错: %v"
)

// Status strings returned to the host.
const (
	StatusMissingText     = "缺少文本内容"
	StatusMissingToken    = "缺少API Token"
	StatusMissingVoice    = "缺少音色参数"
	StatusSynthesisFailed = "语音合成失败"
	statusFmtError        = "语音合成出错: %v"
	statusFmtSuccess      = "成功生成并发送语音：%s..."
)

const (
	logPreviewWidth    = 50
	statusPreviewWidth = 30
)

// Synthesizer is the synthesis client the triggers delegate to.
type Synthesizer interface {
	Synthesize(ctx context.Context, req tts.Request, endpoint, token string, timeout time.Duration) (*tts.Result, error)
}

// Info describes the plugin to the host.
type Info struct {
	Name        string
	Version     string
	Description string
	Components  []ComponentInfo
}

// ComponentInfo describes one trigger.
type ComponentInfo struct {
	Name        string
	Description string
	Enabled     bool
}

// Plugin holds the injected dependencies shared by both triggers.
type Plugin struct {
	cfg   core.ConfigSource
	synth Synthesizer
	log   core.Logger
}

// New creates the plugin. cfg is read on every invocation, never written.
func New(cfg core.ConfigSource, synth Synthesizer, log core.Logger) *Plugin {
	return &Plugin{cfg: cfg, synth: synth, log: log}
}

// Info returns the registration metadata with the current enable flags.
func (p *Plugin) Info() Info {
	return Info{
		Name:        Name,
		Version:     Version,
		Description: Description,
		Components: []ComponentInfo{
			{Name: ActionName, Description: ActionDescription, Enabled: p.actionEnabled()},
			{Name: CommandName, Description: CommandDescription, Enabled: p.commandEnabled()},
		},
	}
}

func (p *Plugin) enabled() bool {
	return config.Bool(p.cfg, KeyPluginEnabled, true)
}

func (p *Plugin) actionEnabled() bool {
	return p.enabled() && config.Bool(p.cfg, KeyActionEnabled, true)
}

func (p *Plugin) commandEnabled() bool {
	return p.enabled() && config.Bool(p.cfg, KeyCommandEnabled, true)
}

// synthesize is the flow shared by both triggers. It never panics and every
// path ends in either a voice delivery or a chat message.
func (p *Plugin) synthesize(
	ctx context.Context,
	messenger core.Messenger,
	text, voice, missingTextMsg, trigger string,
) (ok bool, status string) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}

		p.log.Error("%s panicked: %v", trigger, recovered)
		ok, status = p.fail(ctx, messenger, fmt.Errorf("%v", recovered))
	}()

	text = strings.TrimSpace(text)
	if text == "" {
		p.reply(ctx, messenger, missingTextMsg)

		return false, StatusMissingText
	}

	endpoint := config.String(p.cfg, tts.KeyAPIURL, config.DefaultAPIURL)
	token := config.String(p.cfg, tts.KeyAPIToken, "")
	timeout := time.Duration(config.Float(p.cfg, tts.KeyTimeout, config.DefaultTimeoutSeconds) * float64(time.Second))

	if token == "" {
		p.reply(ctx, messenger, msgMissingToken)

		return false, StatusMissingToken
	}

	req := tts.BuildRequest(p.cfg, text, voice)
	if req.Voice == "" {
		p.reply(ctx, messenger, msgMissingVoice)

		return false, StatusMissingVoice
	}

	p.log.Info("%s: starting GSV2P synthesis, text: %s..., voice: %s", trigger, Preview(text, logPreviewWidth), req.Voice)

	result, err := p.synth.Synthesize(ctx, req, endpoint, token, timeout)
	if err != nil {
		if tts.ReasonOf(err) == tts.ReasonInternal {
			return p.fail(ctx, messenger, err)
		}

		p.log.Warn("%s: synthesis failed (%s): %v", trigger, tts.ReasonOf(err), err)
		p.reply(ctx, messenger, msgSynthesisFailed)

		return false, StatusSynthesisFailed
	}

	err = messenger.SendTyped(ctx, core.MessageTypeVoiceURL, result.AudioPath)
	if err != nil {
		return p.fail(ctx, messenger, fmt.Errorf("failed to deliver voice file: %w", err))
	}

	p.log.Info("%s: voice sent: %s", trigger, result.AudioPath)

	return true, fmt.Sprintf(statusFmtSuccess, Preview(text, statusPreviewWidth))
}

func (p *Plugin) fail(ctx context.Context, messenger core.Messenger, err error) (bool, string) {
	p.log.Error("GSV2P synthesis error: %v", err)
	p.reply(ctx, messenger, fmt.Sprintf(msgFmtSynthesisError, err))

	return false, fmt.Sprintf(statusFmtError, err)
}

func (p *Plugin) reply(ctx context.Context, messenger core.Messenger, text string) {
	err := messenger.SendText(ctx, text)
	if err != nil {
		p.log.Warn("Failed to send chat reply %q: %v", text, err)
	}
}

// Preview shortens text to the given display width for logs and statuses.
func Preview(text string, width int) string {
	return runewidth.Truncate(text, width, "")
}
