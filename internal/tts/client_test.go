package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/gsv2p-tts/internal/config"
)

// Test constants.
const (
	testToken       = "test-token"
	testVoice       = "原神-中文-派蒙_ZH"
	testText        = "你好，世界！"
	testAudioSize   = 5000
	testTimeout     = 10 * time.Second
	contentTypeMPEG = "audio/mpeg"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	lg, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = lg.Close() })

	return lg
}

func newTestClient(t *testing.T) (*Client, string) {
	t.Helper()

	dir := t.TempDir()

	return NewClient(NewAudioWriter(dir), newTestLogger(t)), dir
}

func testRequest() Request {
	return BuildRequest(config.Values{}, testText, testVoice)
}

func fakeAudio(size int) []byte {
	return bytes.Repeat([]byte{0xFF, 0xFB, 0x90, 0x64}, size/4+1)[:size]
}

func audioServer(t *testing.T, contentType string, status int, body []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32

	server := httptest.NewServer(
		http.HandlerFunc(func(responseWriter http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			responseWriter.Header().Set(headerContentType, contentType)
			responseWriter.WriteHeader(status)
			_, _ = responseWriter.Write(body)
		}),
	)
	t.Cleanup(server.Close)

	return server, &hits
}

func TestClient_Synthesize_Success(t *testing.T) {
	t.Parallel()

	audio := fakeAudio(testAudioSize)

	server := httptest.NewServer(
		http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodPost, request.Method)
			assert.Equal(t, "Bearer "+testToken, request.Header.Get(headerAuthorization))
			assert.Equal(t, contentTypeJSON, request.Header.Get(headerContentType))
			assert.Equal(t, contentTypeJSON, request.Header.Get(headerAccept))

			var payload speechRequest

			err := json.NewDecoder(request.Body).Decode(&payload)
			assert.NoError(t, err)
			assert.Equal(t, testText, payload.Input)
			assert.Equal(t, testVoice, payload.Voice)
			assert.Equal(t, config.DefaultModel, payload.Model)
			assert.Equal(t, config.DefaultTextSplitMethod, payload.OtherParams.TextSplitMethod)

			responseWriter.Header().Set(headerContentType, contentTypeMPEG)
			responseWriter.WriteHeader(http.StatusOK)
			_, _ = responseWriter.Write(audio)
		}),
	)
	defer server.Close()

	client, dir := newTestClient(t)

	result, err := client.Synthesize(context.Background(), testRequest(), server.URL, testToken, testTimeout)
	require.NoError(t, err)

	assert.Equal(t, testAudioSize, result.ByteSize)
	assert.Equal(t, dir, filepath.Dir(result.AudioPath))
	assert.True(t, strings.HasPrefix(filepath.Base(result.AudioPath), FilePrefix))
	assert.Equal(t, ".mp3", filepath.Ext(result.AudioPath))

	written, err := os.ReadFile(result.AudioPath)
	require.NoError(t, err)
	assert.Equal(t, audio, written)
}

func TestClient_Synthesize_WireBodyCarriesEveryField(t *testing.T) {
	t.Parallel()

	var raw map[string]any

	server := httptest.NewServer(
		http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
			assert.NoError(t, json.NewDecoder(request.Body).Decode(&raw))
			responseWriter.WriteHeader(http.StatusOK)
			_, _ = responseWriter.Write(fakeAudio(testAudioSize))
		}),
	)
	defer server.Close()

	client, _ := newTestClient(t)

	req := testRequest()
	req.SplitBucket = false
	req.SuperResolution = false
	req.Seed = 0

	_, err := client.Synthesize(context.Background(), req, server.URL, testToken, testTimeout)
	require.NoError(t, err)

	for _, key := range []string{"model", "input", "voice", "response_format", "speed", "other_params"} {
		assert.Contains(t, raw, key)
	}

	other, ok := raw["other_params"].(map[string]any)
	require.True(t, ok)

	for _, key := range []string{
		"text_lang", "prompt_lang", "emotion", "top_k", "top_p", "temperature",
		"text_split_method", "batch_size", "batch_threshold", "split_bucket",
		"fragment_interval", "parallel_infer", "repetition_penalty", "sample_steps",
		"if_sr", "seed",
	} {
		assert.Contains(t, other, key, "zero values must still be sent")
	}

	assert.Len(t, other, 16)
}

func TestClient_Synthesize_PreconditionsSkipNetwork(t *testing.T) {
	t.Parallel()

	server, hits := audioServer(t, contentTypeMPEG, http.StatusOK, fakeAudio(testAudioSize))
	client, _ := newTestClient(t)

	tests := []struct {
		name   string
		text   string
		voice  string
		token  string
		reason Reason
		target error
	}{
		{name: "empty text", text: "", voice: testVoice, token: testToken, reason: ReasonMissingText, target: ErrMissingText},
		{name: "whitespace text", text: " \t\n", voice: testVoice, token: testToken, reason: ReasonMissingText, target: ErrMissingText},
		{name: "empty token", text: testText, voice: testVoice, token: "", reason: ReasonMissingToken, target: ErrMissingToken},
		{name: "empty token and voice", text: testText, voice: "", token: "", reason: ReasonMissingToken, target: ErrMissingToken},
		{name: "empty voice", text: testText, voice: "", token: testToken, reason: ReasonMissingVoice, target: ErrMissingVoice},
	}

	for _, testCase := range tests {
		req := BuildRequest(config.Values{}, testCase.text, testCase.voice)

		_, err := client.Synthesize(context.Background(), req, server.URL, testCase.token, testTimeout)
		require.Error(t, err, testCase.name)
		assert.Equal(t, testCase.reason, ReasonOf(err), testCase.name)
		assert.ErrorIs(t, err, testCase.target, testCase.name)
	}

	assert.Equal(t, int32(0), hits.Load(), "no request may reach the API")
}

func TestClient_Synthesize_JSONErrorWithStatusOK(t *testing.T) {
	t.Parallel()

	body := []byte(`{"error":{"message":"voice not found","code":"invalid_voice"}}`)
	server, _ := audioServer(t, "application/json; charset=utf-8", http.StatusOK, body)
	client, dir := newTestClient(t)

	result, err := client.Synthesize(context.Background(), testRequest(), server.URL, testToken, testTimeout)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, ReasonAPIError, ReasonOf(err))
	require.ErrorIs(t, err, ErrAPI)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestClient_Synthesize_MislabelledAudio(t *testing.T) {
	t.Parallel()

	audio := fakeAudio(testAudioSize)
	server, _ := audioServer(t, contentTypeJSON, http.StatusOK, audio)
	client, _ := newTestClient(t)

	result, err := client.Synthesize(context.Background(), testRequest(), server.URL, testToken, testTimeout)
	require.NoError(t, err)
	assert.Equal(t, testAudioSize, result.ByteSize)
}

func TestClient_Synthesize_ShortBody(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, 1, MinAudioBytes - 1} {
		server, _ := audioServer(t, contentTypeMPEG, http.StatusOK, fakeAudio(size))
		client, _ := newTestClient(t)

		_, err := client.Synthesize(context.Background(), testRequest(), server.URL, testToken, testTimeout)
		require.Error(t, err)
		assert.Equal(t, ReasonInvalidAudio, ReasonOf(err), "size %d", size)
	}
}

func TestClient_Synthesize_MinimumSizeAccepted(t *testing.T) {
	t.Parallel()

	server, _ := audioServer(t, contentTypeMPEG, http.StatusOK, fakeAudio(MinAudioBytes))
	client, _ := newTestClient(t)

	result, err := client.Synthesize(context.Background(), testRequest(), server.URL, testToken, testTimeout)
	require.NoError(t, err)
	assert.Equal(t, MinAudioBytes, result.ByteSize)
}

func TestClient_Synthesize_NonOKStatus(t *testing.T) {
	t.Parallel()

	statuses := []int{
		http.StatusCreated,
		http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
	}

	for _, status := range statuses {
		server, _ := audioServer(t, contentTypeMPEG, status, fakeAudio(testAudioSize))
		client, _ := newTestClient(t)

		_, err := client.Synthesize(context.Background(), testRequest(), server.URL, testToken, testTimeout)
		require.Error(t, err)
		assert.Equal(t, ReasonAPIError, ReasonOf(err), "status %d", status)

		var synthErr *SynthesisError
		require.ErrorAs(t, err, &synthErr)
		assert.Equal(t, status, synthErr.StatusCode)
	}
}

func TestClient_Synthesize_Timeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(
		http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
			select {
			case <-request.Context().Done():
			case <-time.After(5 * time.Second):
			}

			responseWriter.WriteHeader(http.StatusOK)
		}),
	)
	defer server.Close()

	client, _ := newTestClient(t)
	timeout := 200 * time.Millisecond

	start := time.Now()
	_, err := client.Synthesize(context.Background(), testRequest(), server.URL, testToken, timeout)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, ReasonTimeout, ReasonOf(err))
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, elapsed, timeout+2*time.Second)
}

func TestClient_Synthesize_TransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	client, _ := newTestClient(t)

	_, err := client.Synthesize(context.Background(), testRequest(), endpoint, testToken, testTimeout)
	require.Error(t, err)
	assert.Equal(t, ReasonTransportError, ReasonOf(err))
}

func TestClient_Synthesize_UniquePathPerCall(t *testing.T) {
	t.Parallel()

	server, _ := audioServer(t, contentTypeMPEG, http.StatusOK, fakeAudio(testAudioSize))
	client, _ := newTestClient(t)

	first, err := client.Synthesize(context.Background(), testRequest(), server.URL, testToken, testTimeout)
	require.NoError(t, err)

	second, err := client.Synthesize(context.Background(), testRequest(), server.URL, testToken, testTimeout)
	require.NoError(t, err)

	assert.NotEqual(t, first.AudioPath, second.AudioPath)
	assert.FileExists(t, first.AudioPath)
	assert.FileExists(t, second.AudioPath)
}

func TestReasonOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Reason(""), ReasonOf(nil))
	assert.Equal(t, ReasonInternal, ReasonOf(os.ErrPermission))
	assert.Equal(t, ReasonTimeout, ReasonOf(newSynthesisError(ReasonTimeout, context.DeadlineExceeded)))
	assert.ErrorIs(t, newSynthesisError(ReasonTimeout, context.DeadlineExceeded), context.DeadlineExceeded)
}
