// cmd/send.go
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ColonelBlimp/gocw/internal/audio"
	"github.com/ColonelBlimp/gocw/internal/config"
	"github.com/ColonelBlimp/gocw/internal/generator"
	"github.com/ColonelBlimp/gocw/internal/sine"
	"github.com/spf13/cobra"
)

var (
	sendDeviceIndex int
	sendConsole     bool
)

var sendCmd = &cobra.Command{
	Use:   "send [text]",
	Short: "Render text as CW tones to an audio device",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().IntVar(&sendDeviceIndex, "device", -1, "playback device index (-1 for default)")
	sendCmd.Flags().BoolVar(&sendConsole, "console", false, "print a visual trace instead of playing audio")
	rootCmd.AddCommand(sendCmd)
}

func runSend(_ *cobra.Command, args []string) error {
	settings, err := config.Get()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	shape, err := parseSlopeShape(settings.Send.SlopeShape)
	if err != nil {
		return err
	}

	cfg := generator.Config{
		SpeedWPM:      settings.Send.SpeedWPM,
		TolerancePct:  settings.Send.TolerancePct,
		GapUnits:      settings.Send.GapUnits,
		WeightingPct:  settings.Send.WeightingPct,
		FarnsworthWPM: settings.Send.FarnsworthWPM,
		FrequencyHz:   settings.Send.FrequencyHz,
		Volume:        settings.Send.Volume,
		QueueCapacity: settings.Send.QueueCapacity,
		LowWaterMark:  settings.Send.LowWaterMark,
		SampleRateHz:  settings.Send.SampleRateHz,
		SlopeLengthUs: settings.Send.SlopeLengthUs,
		SlopeShape:    shape,
		BufferFrames:  settings.Send.BufferFrames,
	}

	var sink audio.Sink
	if sendConsole {
		sink = audio.NewConsoleBeeperSink(func(s string) { fmt.Print(s) })
	} else {
		playbackCfg := audio.DefaultPlaybackConfig()
		playbackCfg.DeviceIndex = sendDeviceIndex
		sink = audio.NewMalgoPlaybackSink(playbackCfg)
	}

	gen, err := generator.New(cfg, sink)
	if err != nil {
		return fmt.Errorf("init generator: %w", err)
	}
	if err := gen.Start(); err != nil {
		return fmt.Errorf("start generator: %w", err)
	}
	defer func() {
		if err := gen.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "error stopping generator: %v\n", err)
		}
	}()

	text := strings.Join(args, " ")
	if err := gen.EnqueueString(text); err != nil {
		return fmt.Errorf("enqueue text: %w", err)
	}

	for gen.QueueLength() > 0 {
		if err := gen.SinkError(); err != nil {
			return fmt.Errorf("sink error: %w", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if sendConsole {
		fmt.Println()
	}
	return nil
}

func parseSlopeShape(name string) (sine.Shape, error) {
	switch name {
	case "linear":
		return sine.Linear, nil
	case "raised_cosine":
		return sine.RaisedCosine, nil
	case "sine":
		return sine.Sine, nil
	case "rectangular":
		return sine.Rectangular, nil
	default:
		return 0, fmt.Errorf("unknown slope_shape %q", name)
	}
}
