// cmd/selftest.go
package cmd

import (
	"fmt"
	"time"

	"github.com/ColonelBlimp/gocw/internal/audio"
	"github.com/ColonelBlimp/gocw/internal/config"
	"github.com/ColonelBlimp/gocw/internal/generator"
	"github.com/ColonelBlimp/gocw/internal/keybridge"
	"github.com/ColonelBlimp/gocw/internal/receiver"
	"github.com/ColonelBlimp/gocw/internal/timing"
	"github.com/spf13/cobra"
)

var selftestText string

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Send text to a loopback receiver and verify it decodes cleanly",
	Long: `selftest wires a generator directly into a receiver via keybridge.Loopback,
over a null audio sink, and checks that what was sent is what comes back out.
It exercises the full send/receive pipeline without a microphone or speaker.`,
	RunE: runSelftest,
}

func init() {
	selftestCmd.Flags().StringVar(&selftestText, "text", "THE QUICK BROWN FOX", "text to send and decode")
	rootCmd.AddCommand(selftestCmd)
}

func runSelftest(_ *cobra.Command, _ []string) error {
	settings, err := config.Get()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	genCfg := generator.DefaultConfig()
	genCfg.SpeedWPM = settings.Send.SpeedWPM
	genCfg.FrequencyHz = settings.Send.FrequencyHz

	gen, err := generator.New(genCfg, audio.NewNullSink())
	if err != nil {
		return fmt.Errorf("init generator: %w", err)
	}

	params, err := timing.NewReceiveParams(genCfg.SpeedWPM, 30, 0, 2000, false)
	if err != nil {
		return fmt.Errorf("init receive params: %w", err)
	}
	recv := receiver.New(params)

	var recvErrs []error
	keybridge.Loopback(gen.Bridge(), recv, func(err error) {
		recvErrs = append(recvErrs, err)
	})

	if err := gen.Start(); err != nil {
		return fmt.Errorf("start generator: %w", err)
	}
	defer gen.Stop()

	if err := gen.EnqueueString(selftestText); err != nil {
		return fmt.Errorf("enqueue text: %w", err)
	}

	// The generator's consumer thread renders PCM far faster than the
	// scheduled CW timing it reports to the bridge (a NullSink never
	// blocks), so the tone queue drains almost instantly while the
	// bridge's notified timestamps still span the message's real
	// duration. Polling in real time here lets the wall clock catch up
	// to those scheduled timestamps rather than racing ahead of them.
	var decoded []byte
	pollUnit := time.Duration(params.UnitUs) * time.Microsecond / 4
	deadline := time.Now().Add(30 * time.Second)

	for time.Now().Before(deadline) {
		now := time.Now()
		res, err := recv.PollCharacter(now)
		if err == nil {
			switch {
			case res.Unrecognizable:
				decoded = append(decoded, '?')
			case res.Character != 0:
				decoded = append(decoded, res.Character)
			}
			if res.IsEndOfWord {
				decoded = append(decoded, ' ')
			}
			recv.ClearBuffer()
		}
		if gen.QueueLength() == 0 && len(decoded) >= len(selftestText) {
			break
		}
		time.Sleep(pollUnit)
	}

	got := string(decoded)
	want := selftestText

	fmt.Printf("sent:    %q\n", want)
	fmt.Printf("decoded: %q\n", got)
	if len(recvErrs) > 0 {
		fmt.Printf("receiver errors: %d (last: %v)\n", len(recvErrs), recvErrs[len(recvErrs)-1])
	}

	if got != want {
		return fmt.Errorf("selftest mismatch: sent %q, decoded %q", want, got)
	}
	fmt.Println("selftest PASS")
	return nil
}
