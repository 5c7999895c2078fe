package main

import (
	"context"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/book-expert/gsv2p-tts/internal/bridge"
	"github.com/book-expert/gsv2p-tts/internal/config"
	"github.com/book-expert/gsv2p-tts/internal/core"
	"github.com/book-expert/gsv2p-tts/internal/objectstore"
	"github.com/book-expert/gsv2p-tts/internal/plugin"
	"github.com/book-expert/gsv2p-tts/internal/tts"
)

const serveLogFile = "gsv2p-tts.log"

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Handle chat messages from the host over NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	cfg, log, err := setup(configPath, serveLogFile)
	if err != nil {
		return err
	}

	defer closeLogger(log)

	source, watcher, err := configSource(cfg, configPath, log)
	if err != nil {
		return err
	}

	natsConnection, err := nats.Connect(cfg.NATS.URL, nats.Name(plugin.Name))
	if err != nil {
		log.Error("Failed to connect to NATS at %s: %v", cfg.NATS.URL, err)

		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer natsConnection.Close()

	opts := bridge.Options{
		InboundSubject:  cfg.NATS.InboundSubject,
		OutboundSubject: cfg.NATS.OutboundSubject,
		QueueGroup:      cfg.NATS.QueueGroup,
	}

	if cfg.NATS.AudioObjectStoreBucket != "" {
		store, storeErr := openVoiceStore(natsConnection, cfg)
		if storeErr != nil {
			log.Error("Failed to open voice object store: %v", storeErr)

			return storeErr
		}

		opts.Store = store
		opts.EventSubject = cfg.NATS.AudioChunkCreatedSubject
	}

	writer := tts.NewAudioWriter(cfg.Paths.OutputDir)
	gsv2pPlugin := plugin.New(source, tts.NewClient(writer, log), log)

	worker, err := bridge.NewNatsWorker(natsConnection, opts, gsv2pPlugin, source, log)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error { return worker.Run(groupCtx) })

	if watcher != nil {
		group.Go(func() error { return watcher.Run(groupCtx) })
	}

	sweeper := tts.NewSweeper(
		writer.Dir(),
		time.Duration(cfg.Cleanup.MaxAgeSeconds)*time.Second,
		time.Duration(cfg.Cleanup.IntervalSeconds)*time.Second,
		log,
	)
	if sweeper.Enabled() {
		group.Go(func() error { return sweeper.Run(groupCtx) })
	}

	log.System("%s %s started. Listening for chat messages on subject: %s",
		plugin.Name, Version, cfg.NATS.InboundSubject)

	err = group.Wait()
	if err != nil {
		log.Error("Service stopped with error: %v", err)

		return err
	}

	log.System("%s stopped.", plugin.Name)

	return nil
}

// configSource returns the live config source. An explicit file is watched
// for changes; configurator-loaded settings are fixed for the process.
func configSource(
	cfg *config.Config,
	configPath string,
	log *logger.Logger,
) (core.ConfigSource, *config.Watcher, error) {
	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to watch config file: %w", err)
		}

		return watcher, watcher, nil
	}

	values, err := cfg.Values()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to flatten configuration: %w", err)
	}

	return values, nil, nil
}

func openVoiceStore(natsConnection *nats.Conn, cfg *config.Config) (*objectstore.VoiceStore, error) {
	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	ttl := time.Duration(cfg.Cleanup.MaxAgeSeconds) * time.Second

	return objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket, ttl)
}
