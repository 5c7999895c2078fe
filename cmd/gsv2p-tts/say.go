package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/book-expert/gsv2p-tts/internal/config"
	"github.com/book-expert/gsv2p-tts/internal/tts"
)

const sayLogFile = "gsv2p-tts-say.log"

func newSayCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "say <text> [voice]",
		Short: "Synthesize text once and print the audio file path",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			voice := ""
			if len(args) == 2 {
				voice = args[1]
			}

			return runSay(cmd, *configPath, args[0], voice)
		},
	}
}

func runSay(cmd *cobra.Command, configPath, text, voice string) error {
	cfg, log, err := setup(configPath, sayLogFile)
	if err != nil {
		return err
	}

	defer closeLogger(log)

	values, err := cfg.Values()
	if err != nil {
		return fmt.Errorf("failed to flatten configuration: %w", err)
	}

	client := tts.NewClient(tts.NewAudioWriter(cfg.Paths.OutputDir), log)
	timeout := time.Duration(cfg.GSV2P.Timeout) * time.Second

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := client.Synthesize(
		ctx,
		tts.BuildRequest(values, text, voice),
		config.String(values, tts.KeyAPIURL, config.DefaultAPIURL),
		config.String(values, tts.KeyAPIToken, ""),
		timeout,
	)
	if err != nil {
		return fmt.Errorf("synthesis failed (%s): %w", tts.ReasonOf(err), err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", result.AudioPath, humanize.Bytes(uint64(result.ByteSize)))

	return nil
}
