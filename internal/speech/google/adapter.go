// Package google provides a speech.Adapter backed by Google Cloud
// Speech-to-Text streaming recognition with speaker diarization.
package google

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	speechapi "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"dialogue-transcription-service/internal/observability/logging"
	"dialogue-transcription-service/internal/speech"
	"dialogue-transcription-service/internal/transcript"
)

// Config holds streaming recognition settings.
type Config struct {
	LanguageCode    string
	SampleRateHz    int32
	InterimResults  bool
	MinSpeakerCount int32
	MaxSpeakerCount int32
}

// DefaultConfig returns settings matching the service's audio contract.
func DefaultConfig() Config {
	return Config{
		LanguageCode:    "en-US",
		SampleRateHz:    16000,
		InterimResults:  true,
		MinSpeakerCount: 2,
		MaxSpeakerCount: 6,
	}
}

// Adapter implements speech.Adapter using Google Cloud Speech-to-Text.
// Requires GOOGLE_APPLICATION_CREDENTIALS to be set.
type Adapter struct {
	client *speechapi.Client
	cfg    Config

	mu     sync.Mutex
	stream speechpb.Speech_StreamingRecognizeClient
	closed bool
}

// New creates a new Google STT adapter.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	c, err := speechapi.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("google: create client: %w", err)
	}
	return &Adapter{client: c, cfg: cfg}, nil
}

// Start begins a streaming recognition session, sends the initial config
// with diarization enabled, and spawns the receive loop.
func (a *Adapter) Start(ctx context.Context, cb speech.Callback) error {
	stream, err := a.client.StreamingRecognize(ctx)
	if err != nil {
		return fmt.Errorf("google: open stream: %w", err)
	}

	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz:            a.cfg.SampleRateHz,
					LanguageCode:               a.cfg.LanguageCode,
					EnableWordTimeOffsets:      true,
					EnableAutomaticPunctuation: true,
					DiarizationConfig: &speechpb.SpeakerDiarizationConfig{
						EnableSpeakerDiarization: true,
						MinSpeakerCount:          a.cfg.MinSpeakerCount,
						MaxSpeakerCount:          a.cfg.MaxSpeakerCount,
					},
				},
				InterimResults: a.cfg.InterimResults,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("google: send config: %w", err)
	}

	a.mu.Lock()
	a.stream = stream
	a.closed = false
	a.mu.Unlock()

	// Google has no explicit started message; the accepted config is the
	// session-start signal.
	cb.OnSessionStarted()

	go a.listen(stream, cb)
	return nil
}

// SendAudio sends one audio frame to the recognizer.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	stream := a.stream
	closed := a.closed
	a.mu.Unlock()

	if closed || stream == nil {
		return fmt.Errorf("google: stream not started")
	}
	return stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio,
		},
	})
}

// Close half-closes the stream; trailing results still arrive in the
// receive loop.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	if a.stream == nil {
		return nil
	}
	return a.stream.CloseSend()
}

func (a *Adapter) listen(stream speechpb.Speech_StreamingRecognizeClient, cb speech.Callback) {
	logger := logging.WithComponent("google-stt")
	for {
		resp, err := stream.Recv()
		if err != nil {
			if err == io.EOF || status.Code(err) == codes.Canceled {
				cb.OnSessionEnded()
				return
			}
			cb.OnError(fmt.Errorf("google: recv: %w", err))
			return
		}

		for _, r := range resp.Results {
			if len(r.Alternatives) == 0 {
				continue
			}
			segments := segmentsFromResult(r)
			if len(segments) == 0 {
				continue
			}
			logger.Debug().
				Bool("final", r.IsFinal).
				Int("segments", len(segments)).
				Msg("Recognition result")
			cb.OnTranscript(segments, r.IsFinal)
		}
	}
}

// segmentsFromResult flattens one recognition result into speaker-labelled
// segments. When word-level speaker tags are present, consecutive words
// from the same speaker collapse into one segment; otherwise the whole
// alternative becomes a single unattributed segment.
func segmentsFromResult(r *speechpb.StreamingRecognitionResult) []transcript.Segment {
	alt := r.Alternatives[0]

	if len(alt.Words) == 0 {
		return []transcript.Segment{{
			Speaker:   transcript.UnknownSpeaker,
			Text:      alt.Transcript,
			StartTime: durationSeconds(r.ResultEndTime),
		}}
	}

	var segments []transcript.Segment
	var words []string
	var tag int32 = -1
	var start float64

	flush := func() {
		if len(words) == 0 {
			return
		}
		segments = append(segments, transcript.Segment{
			Speaker:   speakerLabel(tag),
			Text:      strings.Join(words, " "),
			StartTime: start,
		})
		words = nil
	}

	for _, w := range alt.Words {
		if w.SpeakerTag != tag {
			flush()
			tag = w.SpeakerTag
			start = durationSeconds(w.StartTime)
		}
		words = append(words, w.Word)
	}
	flush()
	return segments
}

func speakerLabel(tag int32) string {
	if tag <= 0 {
		return transcript.UnknownSpeaker
	}
	return fmt.Sprintf("S%d", tag)
}

func durationSeconds(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return d.AsDuration().Seconds()
}
