package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/streamforge/codecengine/internal/registry"
	"github.com/streamforge/codecengine/pkg/ffmpeg"
	"github.com/streamforge/codecengine/pkg/media"
)

var probeCmd = &cobra.Command{
	Use:   "probe <file>",
	Short: "Probe a media file's codec parameters via ffprobe",
	Long: `Probe runs ffprobe against a media file and, for each stream,
resolves its codec name through the codec registry to a CodecDescriptor
(kind/profile/level/bit depth), the same parse(codecString) collaborator
the engine's isConfigSupported checks use.`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().Bool("pretty", false, "pretty-print JSON output")
	probeCmd.Flags().Duration("timeout", 30*time.Second, "probe timeout")
}

// streamDescriptor pairs one ffprobe stream with the registry's resolved
// CodecDescriptor, or an unresolved reason if the registry doesn't know it.
type streamDescriptor struct {
	Index       int                     `json:"index"`
	CodecType   string                  `json:"codec_type"`
	CodecName   string                  `json:"codec_name"`
	Descriptor  *media.CodecDescriptor  `json:"descriptor,omitempty"`
	Unsupported bool                    `json:"unsupported,omitempty"`
	Unresolved  bool                    `json:"unresolved,omitempty"`
}

type probeResult struct {
	Format  ffmpeg.ProbeFormat `json:"format"`
	Streams []streamDescriptor `json:"streams"`
}

func runProbe(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	pretty, _ := cmd.Flags().GetBool("pretty")
	_, ffprobePath := ffmpegPaths(cmd)

	if ffprobePath == "" {
		bin, err := ffmpeg.NewBinaryDetector().Detect(cmd.Context())
		if err != nil {
			return fmt.Errorf("detecting ffprobe: %w", err)
		}
		ffprobePath = bin.FFprobePath
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := ffmpeg.NewProber(ffprobePath).WithTimeout(timeout).Probe(ctx, args[0])
	if err != nil {
		return fmt.Errorf("probing %q: %w", args[0], err)
	}

	out := probeResult{Format: result.Format}
	for _, s := range result.Streams {
		sd := streamDescriptor{Index: s.Index, CodecType: s.CodecType, CodecName: s.CodecName}
		descr, ok := registry.Parse(s.CodecName)
		if !ok {
			sd.Unresolved = true
		} else {
			sd.Descriptor = &descr
			sd.Unsupported = !registry.IsSupported(descr)
		}
		out.Streams = append(out.Streams, sd)
	}

	var data []byte
	if pretty {
		data, err = json.MarshalIndent(out, "", "  ")
	} else {
		data, err = json.Marshal(out)
	}
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
