// Package tts provides the GSV2P text-to-speech client.
//
// A call builds the JSON request, posts it to the speech endpoint under a
// single deadline, classifies the response and persists valid audio to a
// uniquely named file.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/book-expert/gsv2p-tts/internal/core"
)

// HTTP headers.
const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"
	contentTypeJSON     = "application/json"
	bearerPrefix        = "Bearer "
)

// MinAudioBytes is the smallest payload accepted as audio. Anything shorter
// is a truncated or empty response.
const MinAudioBytes = 100

const (
	maxErrorBodyBytes = 4096
	maxPreviewBytes   = 50
)

// Log formats.
const (
	logFmtCallingAPI      = "Calling GSV2P API: %s (voice: %s, format: %s)"
	logFmtResponseStatus  = "GSV2P API response status: %s, content type: %q"
	logFmtReceivedBytes   = "Received %s of response data"
	logFmtAPIErrorJSON    = "GSV2P API returned error JSON: %s"
	logFmtAPIFailed       = "GSV2P API call failed: %s - %s"
	logFmtAudioTooSmall   = "Audio data too small, possibly corrupt: %d bytes (%q)"
	logFmtAudioSaved      = "GSV2P audio saved: %s (%s)"
	logFmtCallTimedOut    = "GSV2P API call timed out after %s"
	logFmtTransportFailed = "GSV2P API call failed: %v"
)

// Result is the success side of a synthesis outcome.
type Result struct {
	AudioPath string
	ByteSize  int
}

// Client calls the GSV2P speech endpoint. It holds no per-call state and is
// safe for concurrent use.
type Client struct {
	httpClient *http.Client
	writer     *AudioWriter
	log        core.Logger
}

// NewClient creates a client that writes audio through writer. Timeouts are
// applied per call, not on the underlying http.Client.
func NewClient(writer *AudioWriter, log core.Logger) *Client {
	return NewClientWithHTTPClient(&http.Client{}, writer, log)
}

// NewClientWithHTTPClient creates a client around a custom http.Client.
func NewClientWithHTTPClient(httpClient *http.Client, writer *AudioWriter, log core.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		writer:     writer,
		log:        log,
	}
}

// Synthesize sends req to endpoint and returns the saved audio file.
// Preconditions are checked first and fail without any network traffic.
// The whole call, including reading the body, is bounded by timeout.
// Failures are *SynthesisError values; use ReasonOf to classify them.
func (c *Client) Synthesize(
	ctx context.Context,
	req Request,
	endpoint, token string,
	timeout time.Duration,
) (*Result, error) {
	err := validate(req, token)
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	body, err := json.Marshal(req.payload())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, newSynthesisError(ReasonTransportError, fmt.Errorf("failed to create request: %w", err))
	}

	httpReq.Header.Set(headerAuthorization, bearerPrefix+token)
	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeJSON)

	c.log.Info(logFmtCallingAPI, endpoint, req.Voice, req.ResponseFormat)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportFailure(ctx, err, timeout)
	}
	defer resp.Body.Close()

	contentType := strings.ToLower(resp.Header.Get(headerContentType))
	c.log.Info(logFmtResponseStatus, resp.Status, contentType)

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiFailure(ctx, resp, timeout)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportFailure(ctx, err, timeout)
	}

	c.log.Info(logFmtReceivedBytes, humanize.Bytes(uint64(len(audioData))))

	return c.persist(ctx, req, contentType, audioData)
}

func validate(req Request, token string) error {
	if strings.TrimSpace(req.Text) == "" {
		return newSynthesisError(ReasonMissingText, nil)
	}

	if token == "" {
		return newSynthesisError(ReasonMissingToken, nil)
	}

	if strings.TrimSpace(req.Voice) == "" {
		return newSynthesisError(ReasonMissingVoice, nil)
	}

	return nil
}

// persist classifies a 200 body and writes it out when it looks like audio.
// The remote sometimes labels audio as JSON, so a JSON content type only
// counts as an error when the body actually parses.
func (c *Client) persist(ctx context.Context, req Request, contentType string, audioData []byte) (*Result, error) {
	if strings.Contains(contentType, contentTypeJSON) && isJSON(audioData) {
		c.log.Error(logFmtAPIErrorJSON, string(audioData))

		return nil, &SynthesisError{
			Reason:     ReasonAPIError,
			StatusCode: http.StatusOK,
			Detail:     truncateBytes(audioData, maxErrorBodyBytes),
		}
	}

	if len(audioData) < MinAudioBytes {
		c.log.Error(logFmtAudioTooSmall, len(audioData), truncateBytes(audioData, maxPreviewBytes))

		return nil, &SynthesisError{
			Reason: ReasonInvalidAudio,
			Detail: fmt.Sprintf("%d bytes", len(audioData)),
		}
	}

	audioPath, err := c.writer.Write(ctx, audioData, req.ResponseFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to save audio: %w", err)
	}

	c.log.Info(logFmtAudioSaved, audioPath, humanize.Bytes(uint64(len(audioData))))

	return &Result{AudioPath: audioPath, ByteSize: len(audioData)}, nil
}

func (c *Client) apiFailure(ctx context.Context, resp *http.Response, timeout time.Duration) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil && isTimeout(ctx, err) {
		return c.transportFailure(ctx, err, timeout)
	}

	c.log.Error(logFmtAPIFailed, resp.Status, string(body))

	return &SynthesisError{
		Reason:     ReasonAPIError,
		StatusCode: resp.StatusCode,
		Detail:     string(body),
	}
}

func (c *Client) transportFailure(ctx context.Context, err error, timeout time.Duration) error {
	if isTimeout(ctx, err) {
		c.log.Error(logFmtCallTimedOut, timeout)

		return newSynthesisError(ReasonTimeout, err)
	}

	c.log.Error(logFmtTransportFailed, err)

	return newSynthesisError(ReasonTransportError, err)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncateBytes(data []byte, limit int) string {
	if len(data) <= limit {
		return string(data)
	}

	return string(data[:limit])
}
