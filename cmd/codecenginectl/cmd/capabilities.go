package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/streamforge/codecengine/internal/probe"
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "Report this host's ffmpeg codec and hardware-acceleration capabilities",
	Long: `Capabilities runs ffmpeg -encoders/-decoders/-hwaccels detection and
prints the subset of codec families this engine drives, plus any detected
hardware accelerators.`,
	RunE: runCapabilities,
}

func init() {
	rootCmd.AddCommand(capabilitiesCmd)
	capabilitiesCmd.Flags().Bool("pretty", false, "pretty-print JSON output")
	capabilitiesCmd.Flags().Duration("timeout", 30*time.Second, "detection timeout")
}

func runCapabilities(cmd *cobra.Command, _ []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	pretty, _ := cmd.Flags().GetBool("pretty")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	caps, err := probe.NewDetector().Detect(ctx)
	if err != nil {
		return fmt.Errorf("detecting capabilities: %w", err)
	}

	var data []byte
	if pretty {
		data, err = json.MarshalIndent(caps, "", "  ")
	} else {
		data, err = json.Marshal(caps)
	}
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
