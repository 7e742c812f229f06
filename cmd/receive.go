// cmd/receive.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ColonelBlimp/gocw/internal/audio"
	"github.com/ColonelBlimp/gocw/internal/config"
	"github.com/ColonelBlimp/gocw/internal/dsp"
	"github.com/ColonelBlimp/gocw/internal/receiver"
	"github.com/ColonelBlimp/gocw/internal/timing"
	"github.com/spf13/cobra"
)

var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Decode CW from the microphone to stdout",
	RunE:  runReceive,
}

func init() {
	rootCmd.AddCommand(receiveCmd)
}

// runReceive wires microphone audio through the Goertzel/AGC/hysteresis
// tone detector into the edge-timestamp receiver.
func runReceive(_ *cobra.Command, _ []string) error {
	settings, err := config.Get()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if settings.Debug {
		fmt.Printf("Config: sample_rate=%.0f, tone_frequency=%.0f, block_size=%d\n",
			settings.SampleRate, settings.ToneFrequency, settings.BlockSize)
		fmt.Printf("Detection: threshold=%.2f, hysteresis=%d, agc_enabled=%v\n",
			settings.Threshold, settings.Hysteresis, settings.AGCEnabled)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		fmt.Printf("\nReceived signal %v, shutting down...\n", sig)
		cancel()
	}()

	audioConfig := audio.Config{
		DeviceIndex: settings.DeviceIndex,
		SampleRate:  uint32(settings.SampleRate),
		Channels:    uint32(settings.Channels),
		BufferSize:  uint32(settings.BufferSize),
	}
	capture := audio.NewMalgoCaptureSource(audioConfig)

	if err := capture.Init(); err != nil {
		return fmt.Errorf("init audio: %w", err)
	}
	defer func() {
		if err := capture.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error closing audio capture: %v\n", err)
		}
	}()

	if settings.Debug {
		devices, err := capture.ListDevices()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not list audio devices: %v\n", err)
		} else {
			fmt.Printf("Available audio devices:\n")
			for i, dev := range devices {
				fmt.Printf("  [%d] %s\n", i, dev.Name())
			}
		}
	}

	goertzelConfig := dsp.GoertzelConfig{
		TargetFrequency: settings.ToneFrequency,
		SampleRate:      settings.SampleRate,
		BlockSize:       settings.BlockSize,
	}
	goertzel, err := dsp.NewGoertzel(goertzelConfig)
	if err != nil {
		return fmt.Errorf("init goertzel: %w", err)
	}

	detectorConfig := dsp.DetectorConfig{
		Threshold:       settings.Threshold,
		Hysteresis:      settings.Hysteresis,
		OverlapPct:      settings.OverlapPct,
		AGCEnabled:      settings.AGCEnabled,
		AGCDecay:        settings.AGCDecay,
		AGCAttack:       settings.AGCAttack,
		AGCWarmupBlocks: settings.AGCWarmupBlocks,
	}
	detector, err := dsp.NewDetector(detectorConfig, goertzel)
	if err != nil {
		return fmt.Errorf("init detector: %w", err)
	}

	params, err := timing.NewReceiveParams(
		settings.Receive.SpeedWPM,
		settings.Receive.TolerancePct,
		settings.Receive.GapUnits,
		settings.Receive.NoiseSpikeThresholdUs,
		settings.Receive.Adaptive,
	)
	if err != nil {
		return fmt.Errorf("init receive params: %w", err)
	}
	recv := receiver.New(params)

	dsp.BridgeToReceiver(detector, recv, func(err error) {
		if settings.Debug {
			fmt.Fprintf(os.Stderr, "[receiver] %v\n", err)
		}
	})

	capture.SetCallback(func(samples []float32) {
		detector.Process(samples)
	})

	fmt.Println("Starting CW decoder... Press Ctrl+C to stop.")
	if err := capture.Start(ctx); err != nil {
		return fmt.Errorf("start audio capture: %w", err)
	}

	pollUnit := time.Duration(params.UnitUs) * time.Microsecond / 4
	if pollUnit <= 0 {
		pollUnit = 5 * time.Millisecond
	}
	ticker := time.NewTicker(pollUnit)
	defer ticker.Stop()

poll:
	for {
		select {
		case <-ctx.Done():
			break poll
		case now := <-ticker.C:
			res, err := recv.PollCharacter(now)
			if err != nil {
				continue
			}
			switch {
			case res.Unrecognizable:
				fmt.Print("?")
			case res.Character != 0:
				fmt.Print(string(res.Character))
			}
			if res.IsEndOfWord {
				fmt.Print(" ")
			}
			if settings.Debug {
				fmt.Fprintf(os.Stderr, "\n[timing] dot_stddev_us=%.0f dash_stddev_us=%.0f\n",
					recv.TimingStdDevUs(receiver.StatDot), recv.TimingStdDevUs(receiver.StatDash))
			}
			recv.ClearBuffer()
		}
	}

	if err := capture.Stop(); err != nil && err != audio.ErrNotRunning {
		fmt.Fprintf(os.Stderr, "error stopping audio capture: %v\n", err)
	}

	fmt.Println("CW decoder stopped.")
	return nil
}
