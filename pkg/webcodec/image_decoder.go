package webcodec

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streamforge/codecengine/internal/backend"
	"github.com/streamforge/codecengine/internal/codecerr"
	"github.com/streamforge/codecengine/internal/engine"
	"github.com/streamforge/codecengine/pkg/media"
)

// Track describes one coding stream inside a multi-track image container
// (a single-image track, decoded once rather than streamed).
type Track struct {
	Animated         bool
	FrameCount       int
	RepetitionCount  int
	Selected         bool
}

// TrackList is populated by a TracksReady event.
type TrackList []Track

// ImageDecoderConfig is the construction-time argument bundle of
// ImageDecoder — there is no separate configure() for this variant.
type ImageDecoderConfig struct {
	Type                 string
	Data                 []byte
	PremultiplyAlpha     bool
	ColorSpaceConversion bool
	DesiredWidth         int
	DesiredHeight        int
	PreferAnimation      bool
}

// ImageProber is the synchronous probing capability a backend offers an
// image decoder: given the construction-time config, report the track
// list before any frame is decoded. internal/backend/imagedec implements
// it in-process with the Go image decoders.
type ImageProber interface {
	ProbeTracks(cfg ImageDecoderConfig) (TrackList, error)
}

// DecodeOptions parameterizes one decode() call.
type DecodeOptions struct {
	FrameIndex          int
	CompleteFramesOnly  bool
}

// DecodeResult is the value a decode() future resolves to.
type DecodeResult struct {
	Image    *media.VideoFrame
	Complete bool
}

// ImageRequest is one decode() call handed to the backend: the frame
// selector plus the request id deliverOutput uses to route the result back
// to the caller that asked for it. Exported so a real backend living outside
// this package (internal/backend/imagedec) can read it off SendInput's input
// value.
type ImageRequest struct {
	RequestID  string
	Opts       DecodeOptions
	TrackIndex int
}

// ImageOutput is the Output.Value a backend hands back for an ImageRequest.
type ImageOutput struct {
	RequestID string
	Result    DecodeResult
}

// ImageDecoderInit is the constructor argument bundle's callback half.
type ImageDecoderInit struct {
	Error func(*codecerr.Error)
}

// ImageDecoder is the façade variant for single images: input is supplied at
// construction, decode(frameIndex) is a promise rather than a broadcast
// callback, and a TracksReady event populates Tracks().
type ImageDecoder struct {
	eng    *engine.Engine[ImageRequest, ImageOutput]
	config ImageDecoderConfig

	pendingMu sync.Mutex
	pending   map[string]chan DecodeResult

	tracksMu sync.Mutex
	tracks   TrackList

	completed chan struct{}
	complete  bool
}

// NewImageDecoder constructs an image decoder over back, probing its track
// list synchronously before returning — this engine treats the probe as
// part of construction rather than an async post-configure step. A backend
// that does not implement ImageProber leaves Tracks empty.
func NewImageDecoder(init ImageDecoderInit, cfg ImageDecoderConfig, back backend.Backend, dispatcher engine.CallerDispatcher) (*ImageDecoder, error) {
	d := &ImageDecoder{
		config:    cfg,
		pending:   make(map[string]chan DecodeResult),
		completed: make(chan struct{}),
	}

	d.eng = engine.New[ImageRequest, ImageOutput](engine.Config[ImageOutput]{
		Kind:       engine.Kind{IsDecoder: true},
		Backend:    back,
		Dispatcher: dispatcher,
		OutputCB:   d.deliverOutput,
		ErrorCB:    init.Error,
	})

	if err := d.eng.Configure(cfg); err != nil {
		return nil, err
	}

	if prober, ok := back.(ImageProber); ok {
		tracks, err := prober.ProbeTracks(cfg)
		if err != nil {
			return nil, codecerr.Wrap(codecerr.NotSupported, "failed to probe image tracks", err)
		}
		d.tracksMu.Lock()
		d.tracks = tracks
		d.tracksMu.Unlock()
	}

	return d, nil
}

func (d *ImageDecoder) deliverOutput(out ImageOutput) {
	d.pendingMu.Lock()
	ch, ok := d.pending[out.RequestID]
	if ok {
		delete(d.pending, out.RequestID)
	}
	d.pendingMu.Unlock()

	if ok {
		ch <- out.Result
		close(ch)
	}

	if out.Result.Complete {
		d.markCompleted()
	}
}

func (d *ImageDecoder) markCompleted() {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	if !d.complete {
		d.complete = true
		close(d.completed)
	}
}

// Decode requests the frame named by opts and returns a channel that
// receives exactly one DecodeResult.
func (d *ImageDecoder) Decode(opts DecodeOptions) (<-chan DecodeResult, error) {
	requestID := uuid.NewString()
	ch := make(chan DecodeResult, 1)

	d.pendingMu.Lock()
	d.pending[requestID] = ch
	d.pendingMu.Unlock()

	req := ImageRequest{RequestID: requestID, Opts: opts, TrackIndex: d.selectedTrack()}
	if err := d.eng.Admit(req, true, nil); err != nil {
		d.pendingMu.Lock()
		delete(d.pending, requestID)
		d.pendingMu.Unlock()
		return nil, err
	}
	return ch, nil
}

// Tracks returns the track list populated by the construction-time probe.
func (d *ImageDecoder) Tracks() TrackList {
	d.tracksMu.Lock()
	defer d.tracksMu.Unlock()
	return d.tracks
}

// SelectTrack marks a different track selected; every subsequent Decode
// call carries the newly selected track's index on its ImageRequest, so a
// backend that actually demuxes more than one track sees the change on its
// next SendInput.
func (d *ImageDecoder) SelectTrack(index int) error {
	d.tracksMu.Lock()
	defer d.tracksMu.Unlock()
	if index < 0 || index >= len(d.tracks) {
		return codecerr.New(codecerr.TypeMismatch, "track index out of range")
	}
	for i := range d.tracks {
		d.tracks[i].Selected = i == index
	}
	return nil
}

// selectedTrack returns the index of the currently selected track, or 0 if
// none has been explicitly selected yet (the probe default).
func (d *ImageDecoder) selectedTrack() int {
	d.tracksMu.Lock()
	defer d.tracksMu.Unlock()
	for i, t := range d.tracks {
		if t.Selected {
			return i
		}
	}
	return 0
}

// Completed blocks until a decode result with Complete set has been
// delivered, or timeout elapses; it reports whether that happened.
func (d *ImageDecoder) Completed(timeout time.Duration) bool {
	select {
	case <-d.completed:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Reset discards queued and in-flight decode requests. Any Decode() channel
// still awaiting a result is closed rather than left to block forever, the
// same way drainAndRejectFlushes rejects pending flushes on the engine
// side.
func (d *ImageDecoder) Reset() error {
	err := d.eng.Reset()
	d.rejectPending()
	return err
}

// Close is idempotent.
func (d *ImageDecoder) Close() error {
	err := d.eng.Close()
	d.rejectPending()
	return err
}

// rejectPending closes every still-pending Decode() channel without a
// value, so a caller blocked on <-ch unblocks with a zero DecodeResult
// instead of hanging — queue.DrainPending silently drops ImageRequest
// payloads (they carry no refcounted resource to release), so this is the
// only place that notices they were abandoned.
func (d *ImageDecoder) rejectPending() {
	d.pendingMu.Lock()
	pending := d.pending
	d.pending = make(map[string]chan DecodeResult)
	d.pendingMu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
}

// State is a pure observation of the current W3C state.
func (d *ImageDecoder) State() engine.State { return d.eng.State() }
