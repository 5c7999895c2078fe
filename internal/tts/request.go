package tts

import (
	"strings"

	"github.com/book-expert/gsv2p-tts/internal/config"
	"github.com/book-expert/gsv2p-tts/internal/core"
)

// Configuration keys read when building a request.
const (
	KeyAPIURL            = "gsv2p.api_url"
	KeyAPIToken          = "gsv2p.api_token"
	KeyDefaultVoice      = "gsv2p.default_voice"
	KeyTimeout           = "gsv2p.timeout"
	KeyModel             = "gsv2p.model"
	KeyResponseFormat    = "gsv2p.response_format"
	KeySpeed             = "gsv2p.speed"
	KeyTextLang          = "gsv2p.text_lang"
	KeyPromptLang        = "gsv2p.prompt_lang"
	KeyEmotion           = "gsv2p.emotion"
	KeyTopK              = "gsv2p.top_k"
	KeyTopP              = "gsv2p.top_p"
	KeyTemperature       = "gsv2p.temperature"
	KeyTextSplitMethod   = "gsv2p.text_split_method"
	KeyBatchSize         = "gsv2p.batch_size"
	KeyBatchThreshold    = "gsv2p.batch_threshold"
	KeySplitBucket       = "gsv2p.split_bucket"
	KeyFragmentInterval  = "gsv2p.fragment_interval"
	KeyParallelInfer     = "gsv2p.parallel_infer"
	KeyRepetitionPenalty = "gsv2p.repetition_penalty"
	KeySampleSteps       = "gsv2p.sample_steps"
	KeyIfSR              = "gsv2p.if_sr"
	KeySeed              = "gsv2p.seed"
)

// Request is the parameter bundle for one synthesis call. It is built fresh
// per call and every field is always sent.
type Request struct {
	Text              string
	Voice             string
	Model             string
	ResponseFormat    string
	TextLang          string
	PromptLang        string
	Emotion           string
	TextSplitMethod   string
	Speed             float64
	TopP              float64
	Temperature       float64
	BatchThreshold    float64
	FragmentInterval  float64
	RepetitionPenalty float64
	TopK              int
	BatchSize         int
	SampleSteps       int
	Seed              int
	SplitBucket       bool
	ParallelInfer     bool
	SuperResolution   bool
}

// speechRequest is the JSON body of POST /v1/audio/speech. Field names are
// fixed by the remote API.
type speechRequest struct {
	Model          string      `json:"model"`
	Input          string      `json:"input"`
	Voice          string      `json:"voice"`
	ResponseFormat string      `json:"response_format"`
	Speed          float64     `json:"speed"`
	OtherParams    otherParams `json:"other_params"`
}

type otherParams struct {
	TextLang          string  `json:"text_lang"`
	PromptLang        string  `json:"prompt_lang"`
	Emotion           string  `json:"emotion"`
	TopK              int     `json:"top_k"`
	TopP              float64 `json:"top_p"`
	Temperature       float64 `json:"temperature"`
	TextSplitMethod   string  `json:"text_split_method"`
	BatchSize         int     `json:"batch_size"`
	BatchThreshold    float64 `json:"batch_threshold"`
	SplitBucket       bool    `json:"split_bucket"`
	FragmentInterval  float64 `json:"fragment_interval"`
	ParallelInfer     bool    `json:"parallel_infer"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	SampleSteps       int     `json:"sample_steps"`
	IfSR              bool    `json:"if_sr"`
	Seed              int     `json:"seed"`
}

// BuildRequest assembles a request from user input and configuration. An
// explicit voice wins over gsv2p.default_voice; every other field comes from
// configuration or its documented default.
func BuildRequest(src core.ConfigSource, text, voice string) Request {
	voice = strings.TrimSpace(voice)
	if voice == "" {
		voice = strings.TrimSpace(config.String(src, KeyDefaultVoice, ""))
	}

	return Request{
		Text:              strings.TrimSpace(text),
		Voice:             voice,
		Model:             config.String(src, KeyModel, config.DefaultModel),
		ResponseFormat:    config.String(src, KeyResponseFormat, config.DefaultResponseFormat),
		TextLang:          config.String(src, KeyTextLang, config.DefaultTextLang),
		PromptLang:        config.String(src, KeyPromptLang, config.DefaultPromptLang),
		Emotion:           config.String(src, KeyEmotion, config.DefaultEmotion),
		TextSplitMethod:   config.String(src, KeyTextSplitMethod, config.DefaultTextSplitMethod),
		Speed:             config.Float(src, KeySpeed, config.DefaultSpeed),
		TopP:              config.Float(src, KeyTopP, config.DefaultTopP),
		Temperature:       config.Float(src, KeyTemperature, config.DefaultTemperature),
		BatchThreshold:    config.Float(src, KeyBatchThreshold, config.DefaultBatchThreshold),
		FragmentInterval:  config.Float(src, KeyFragmentInterval, config.DefaultFragmentInterval),
		RepetitionPenalty: config.Float(src, KeyRepetitionPenalty, config.DefaultRepetitionPenalty),
		TopK:              config.Int(src, KeyTopK, config.DefaultTopK),
		BatchSize:         config.Int(src, KeyBatchSize, config.DefaultBatchSize),
		SampleSteps:       config.Int(src, KeySampleSteps, config.DefaultSampleSteps),
		Seed:              config.Int(src, KeySeed, config.DefaultSeed),
		SplitBucket:       config.Bool(src, KeySplitBucket, config.DefaultSplitBucket),
		ParallelInfer:     config.Bool(src, KeyParallelInfer, config.DefaultParallelInfer),
		SuperResolution:   config.Bool(src, KeyIfSR, config.DefaultSuperResolution),
	}
}

func (r Request) payload() speechRequest {
	return speechRequest{
		Model:          r.Model,
		Input:          r.Text,
		Voice:          r.Voice,
		ResponseFormat: r.ResponseFormat,
		Speed:          r.Speed,
		OtherParams: otherParams{
			TextLang:          r.TextLang,
			PromptLang:        r.PromptLang,
			Emotion:           r.Emotion,
			TopK:              r.TopK,
			TopP:              r.TopP,
			Temperature:       r.Temperature,
			TextSplitMethod:   r.TextSplitMethod,
			BatchSize:         r.BatchSize,
			BatchThreshold:    r.BatchThreshold,
			SplitBucket:       r.SplitBucket,
			FragmentInterval:  r.FragmentInterval,
			ParallelInfer:     r.ParallelInfer,
			RepetitionPenalty: r.RepetitionPenalty,
			SampleSteps:       r.SampleSteps,
			IfSR:              r.SuperResolution,
			Seed:              r.Seed,
		},
	}
}
