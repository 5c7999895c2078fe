// Package objectstore_test tests the NATS voice store.
package objectstore_test

import (
	"context"
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/gsv2p-tts/internal/objectstore"
)

// StartTestServer starts an in-memory NATS server with JetStream enabled.
func StartTestServer(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1 // Use a random port
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	natsServer := test.RunServer(&opts)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	t.Cleanup(func() {
		natsConnection.Close()
		natsServer.Shutdown()
	})

	return natsServer, natsConnection
}

func TestVoiceStore_UploadDownload(t *testing.T) {
	t.Parallel()

	_, natsConnection := StartTestServer(t)

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := objectstore.New(jetstreamContext, "voices", 0)
	require.NoError(t, err)
	assert.Equal(t, "voices", store.Bucket())

	ctx := context.Background()
	key := "gsv2p_tts_0123.mp3"
	uploadData := []byte("ID3 pretend this is an mp3 frame")

	require.NoError(t, store.Upload(ctx, key, uploadData))

	downloadData, err := store.Download(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uploadData, downloadData)
}

func TestVoiceStore_BindsExistingBucket(t *testing.T) {
	t.Parallel()

	_, natsConnection := StartTestServer(t)

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	first, err := objectstore.New(jetstreamContext, "voices", 0)
	require.NoError(t, err)
	require.NoError(t, first.Upload(context.Background(), "a.wav", []byte("RIFF")))

	second, err := objectstore.New(jetstreamContext, "voices", 0)
	require.NoError(t, err)

	data, err := second.Download(context.Background(), "a.wav")
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF"), data)
}

func TestVoiceStore_Errors(t *testing.T) {
	t.Parallel()

	_, natsConnection := StartTestServer(t)

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	_, err = objectstore.New(jetstreamContext, "", 0)
	require.ErrorIs(t, err, objectstore.ErrBucketEmpty)

	store, err := objectstore.New(jetstreamContext, "voices", 0)
	require.NoError(t, err)

	_, err = store.Download(context.Background(), "missing.mp3")
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = store.Upload(ctx, "late.mp3", []byte("x"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestContentType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "application/octet-stream", objectstore.ContentType("voice"))
	assert.Equal(t, "audio/mpeg", objectstore.ContentType("gsv2p_tts_ab.MP3"))
	assert.Equal(t, "audio/wav", objectstore.ContentType("voice.wav"))
}
