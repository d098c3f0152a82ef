package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/spf13/cobra"

	"github.com/streamforge/codecengine/internal/backend/ffmpegproc"
	"github.com/streamforge/codecengine/internal/codecerr"
	"github.com/streamforge/codecengine/internal/engine"
	"github.com/streamforge/codecengine/pkg/ffmpeg"
	"github.com/streamforge/codecengine/pkg/media"
	"github.com/streamforge/codecengine/pkg/webcodec"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <file>",
	Short: "Decode a raw H.264 elementary stream end to end",
	Long: `Decode constructs a VideoDecoder over the real ffmpeg-subprocess
backend, feeds it EncodedChunks split from the input file's Annex-B
elementary stream, and logs each decoded frame/flush/close lifecycle event
to stderr as structured logs.

This is a CLI-only harness for exercising the control engine; it is not a
scripting-language binding.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().Int("width", 0, "coded width in pixels (probed via ffprobe if unset)")
	decodeCmd.Flags().Int("height", 0, "coded height in pixels (probed via ffprobe if unset)")
	decodeCmd.Flags().String("codec", "avc1.42E01E", "webcodecs-style codec string")
	decodeCmd.Flags().Duration("drain-timeout", 10*time.Second, "how long to wait for outstanding chunks to flush")
}

func runDecode(cmd *cobra.Command, args []string) error {
	path := args[0]
	codecStr, _ := cmd.Flags().GetString("codec")
	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")
	drainTimeout, _ := cmd.Flags().GetDuration("drain-timeout")
	ffmpegPath, ffprobePath := ffmpegPaths(cmd)

	log := slog.Default()

	if width <= 0 || height <= 0 {
		probedWidth, probedHeight, err := probeDimensions(cmd.Context(), path, ffprobePath)
		if err != nil {
			return fmt.Errorf("auto-detecting coded size (pass --width/--height to skip): %w", err)
		}
		width, height = probedWidth, probedHeight
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %q: %w", path, err)
	}
	chunks := splitAccessUnits(data)
	if len(chunks) == 0 {
		return fmt.Errorf("%q contains no H.264 access units", path)
	}
	log.Info("split elementary stream", "file", path, "access_units", len(chunks))

	dispatch, stopDispatch := newDrainingDispatcher()
	defer stopDispatch()

	frameCount := 0
	decoder := webcodec.NewVideoDecoder(webcodec.VideoDecoderInit{
		Output: func(frame *media.VideoFrame) {
			frameCount++
			log.Info("decoded frame",
				"index", frameCount,
				"width", frame.CodedSize.Width,
				"height", frame.CodedSize.Height,
				"timestamp_us", frame.Timestamp,
			)
		},
		Error: func(err *codecerr.Error) {
			log.Error("decoder error", "kind", err.Kind, "message", err.Message)
		},
	}, ffmpegproc.NewDecoder(ffmpegproc.Config{FFmpegPath: ffmpegPath, Logger: log}), dispatch)

	if err := decoder.Configure(media.DecoderConfig{
		Codec:       codecStr,
		CodedWidth:  width,
		CodedHeight: height,
	}); err != nil {
		return fmt.Errorf("configuring decoder: %w", err)
	}

	for i, au := range chunks {
		typ := media.ChunkDelta
		if h264.IsRandomAccess(au) {
			typ = media.ChunkKey
		}
		annexB, err := h264.AnnexB(au).Marshal()
		if err != nil {
			return fmt.Errorf("remarshaling access unit %d: %w", i, err)
		}
		if err := decoder.Decode(media.NewEncodedChunk(typ, int64(i)*frameDurationMicros, frameDurationMicros, annexB)); err != nil {
			return fmt.Errorf("decoding access unit %d: %w", i, err)
		}
	}

	flushCh, err := decoder.Flush()
	if err != nil {
		return fmt.Errorf("flushing decoder: %w", err)
	}
	select {
	case result := <-flushCh:
		if !result.Success {
			log.Warn("flush completed with outstanding error", "reason", result.Reason)
		}
	case <-time.After(drainTimeout):
		return fmt.Errorf("timed out waiting for flush after %s", drainTimeout)
	}

	if err := decoder.Close(); err != nil {
		return fmt.Errorf("closing decoder: %w", err)
	}
	log.Info("decode complete", "frames", frameCount)
	return nil
}

// frameDurationMicros is the nominal per-frame duration this harness stamps
// on split access units; it has no bearing on decode correctness, only on
// the timestamps logged alongside each frame.
const frameDurationMicros = 1_000_000 / 30

// probeDimensions resolves coded width/height via ffprobe when the caller
// didn't pass --width/--height explicitly.
func probeDimensions(ctx context.Context, path, ffprobePath string) (width, height int, err error) {
	if ffprobePath == "" {
		bin, err := ffmpeg.NewBinaryDetector().Detect(ctx)
		if err != nil {
			return 0, 0, err
		}
		ffprobePath = bin.FFprobePath
	}
	result, err := ffmpeg.NewProber(ffprobePath).Probe(ctx, path)
	if err != nil {
		return 0, 0, err
	}
	stream := result.GetVideoStream()
	if stream == nil {
		return 0, 0, fmt.Errorf("no video stream found")
	}
	return stream.Width, stream.Height, nil
}

// splitAccessUnits groups raw Annex-B bytes into per-picture access units,
// starting a new unit at each VCL NAL (slice) boundary so non-VCL NALs
// (AUD/SPS/PPS) stay attached to the picture they precede.
func splitAccessUnits(data []byte) [][][]byte {
	var au h264.AnnexB
	if err := au.Unmarshal(data); err != nil {
		return nil
	}

	var units [][][]byte
	var current [][]byte
	for _, nalu := range au {
		if len(nalu) == 0 {
			continue
		}
		naluType := h264.NALUType(nalu[0] & 0x1F)
		isVCL := naluType == h264.NALUTypeIDR || naluType == h264.NALUTypeNonIDR
		if isVCL && len(current) > 0 {
			hasVCL := false
			for _, n := range current {
				t := h264.NALUType(n[0] & 0x1F)
				if t == h264.NALUTypeIDR || t == h264.NALUTypeNonIDR {
					hasVCL = true
					break
				}
			}
			if hasVCL {
				units = append(units, current)
				current = nil
			}
		}
		current = append(current, nalu)
	}
	if len(current) > 0 {
		units = append(units, current)
	}
	return units
}

// newDrainingDispatcher builds the "caller thread" — a single goroutine
// draining a FIFO of callback closures, mirroring the single-consumer
// channel pattern the engine's Delivery is built to run against. stop waits
// for the goroutine to drain and exit.
func newDrainingDispatcher() (dispatch engine.CallerDispatcher, stop func()) {
	work := make(chan func(), 256)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for fn := range work {
			fn()
		}
	}()
	dispatch = func(fn func()) {
		work <- fn
	}
	stop = func() {
		close(work)
		<-done
	}
	return dispatch, stop
}
