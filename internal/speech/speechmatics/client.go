// Package speechmatics provides a speech.Adapter that talks to the
// Speechmatics real-time transcription API over its direct WebSocket
// endpoint. Audio goes out as binary frames; transcripts, lifecycle and
// error messages come back as JSON.
package speechmatics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"dialogue-transcription-service/internal/observability/logging"
	"dialogue-transcription-service/internal/speech"
)

// ErrNotConnected is returned when audio is sent before Start or after Close.
var ErrNotConnected = errors.New("speechmatics: channel not connected")

// AdditionalVocab biases recognition toward domain terms.
type AdditionalVocab struct {
	Content    string   `json:"content"`
	SoundsLike []string `json:"sounds_like,omitempty"`
}

// Config holds the transcription and audio settings sent in StartRecognition.
type Config struct {
	URL              string
	Language         string
	OutputLocale     string
	SampleRateHz     int
	Encoding         string
	EnablePartials   bool
	OperatingPoint   string
	MaxDelay         float64
	MaxDelayMode     string
	Diarization      string
	AdditionalVocab  []AdditionalVocab
	HandshakeTimeout time.Duration
}

// DefaultConfig returns the production transcription settings.
func DefaultConfig() Config {
	return Config{
		URL:              "wss://eu2.rt.speechmatics.com/v2",
		Language:         "en",
		OutputLocale:     "en-US",
		SampleRateHz:     16000,
		Encoding:         "pcm_s16le",
		EnablePartials:   true,
		OperatingPoint:   "enhanced",
		MaxDelay:         0.7,
		MaxDelayMode:     "flexible",
		Diarization:      "speaker",
		HandshakeTimeout: 10 * time.Second,
	}
}

type startRecognition struct {
	Message             string              `json:"message"`
	AudioFormat         audioFormat         `json:"audio_format"`
	TranscriptionConfig transcriptionConfig `json:"transcription_config"`
}

type audioFormat struct {
	Type       string `json:"type"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

type transcriptionConfig struct {
	Language        string            `json:"language"`
	OutputLocale    string            `json:"output_locale,omitempty"`
	OperatingPoint  string            `json:"operating_point,omitempty"`
	EnablePartials  bool              `json:"enable_partials"`
	Diarization     string            `json:"diarization,omitempty"`
	MaxDelay        float64           `json:"max_delay,omitempty"`
	MaxDelayMode    string            `json:"max_delay_mode,omitempty"`
	AdditionalVocab []AdditionalVocab `json:"additional_vocab,omitempty"`
}

type endOfStream struct {
	Message   string `json:"message"`
	LastSeqNo int    `json:"last_seq_no"`
}

// Client implements speech.Adapter against the Speechmatics real-time API.
type Client struct {
	cfg    Config
	token  string
	logger zerolog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	cb      speech.Callback
	seqNo   int
	started time.Time
	closed  bool
}

// New creates a client authenticating with a short-lived session token
// issued by the token provider.
func New(token string, cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		token:  token,
		logger: logging.WithComponent("speechmatics"),
	}
}

// Start dials the real-time endpoint, sends StartRecognition and begins
// dispatching decoded events to the callback.
func (c *Client) Start(ctx context.Context, cb speech.Callback) error {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("speechmatics: dial %s: %s: %w", c.cfg.URL, resp.Status, err)
		}
		return fmt.Errorf("speechmatics: dial %s: %w", c.cfg.URL, err)
	}

	start := startRecognition{
		Message: "StartRecognition",
		AudioFormat: audioFormat{
			Type:       "raw",
			Encoding:   c.cfg.Encoding,
			SampleRate: c.cfg.SampleRateHz,
		},
		TranscriptionConfig: transcriptionConfig{
			Language:        c.cfg.Language,
			OutputLocale:    c.cfg.OutputLocale,
			OperatingPoint:  c.cfg.OperatingPoint,
			EnablePartials:  c.cfg.EnablePartials,
			Diarization:     c.cfg.Diarization,
			MaxDelay:        c.cfg.MaxDelay,
			MaxDelayMode:    c.cfg.MaxDelayMode,
			AdditionalVocab: c.cfg.AdditionalVocab,
		},
	}
	if err := conn.WriteJSON(start); err != nil {
		conn.Close()
		return fmt.Errorf("speechmatics: send StartRecognition: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.cb = cb
	c.started = time.Now()
	c.seqNo = 0
	c.closed = false
	c.mu.Unlock()

	c.logger.Info().
		Str("url", c.cfg.URL).
		Str("language", c.cfg.Language).
		Str("diarization", c.cfg.Diarization).
		Msg("Recognition stream opened")

	go c.readLoop(conn, cb)
	return nil
}

// SendAudio forwards one raw PCM frame as a binary AddAudio message.
func (c *Client) SendAudio(ctx context.Context, audio []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("speechmatics: send audio: %w", err)
	}
	c.seqNo++
	return nil
}

// Close signals end of audio with EndOfStream. The connection stays open
// until the vendor acknowledges with EndOfTranscript (bounded by a read
// deadline) so trailing transcripts still reach the callback. Callers
// that treat Close as the end of the conversation are free to discard
// those trailing results.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.conn == nil {
		return nil
	}
	if err := c.conn.WriteJSON(endOfStream{Message: "EndOfStream", LastSeqNo: c.seqNo}); err != nil {
		c.conn.Close()
		return fmt.Errorf("speechmatics: send EndOfStream: %w", err)
	}
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return nil
}

// elapsed is the fallback start time for results without one: seconds since
// the stream opened.
func (c *Client) elapsed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.started).Seconds()
}

func (c *Client) readLoop(conn *websocket.Conn, cb speech.Callback) {
	defer func() {
		conn.Close()
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if closed || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			cb.OnError(fmt.Errorf("speechmatics: read: %w", err))
			return
		}

		ev, err := speech.ParseMessage(data, c.elapsed)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Dropping undecodable channel message")
			continue
		}

		switch ev.Kind {
		case speech.KindSessionStarted:
			c.logger.Info().Msg("Recognition started")
			cb.OnSessionStarted()
		case speech.KindTranscript:
			cb.OnTranscript(ev.Segments, ev.Final)
		case speech.KindSessionEnded:
			c.logger.Info().Int("framesSent", c.frames()).Msg("End of transcript")
			cb.OnSessionEnded()
			return
		case speech.KindError:
			cb.OnError(ev.Err)
			return
		}
	}
}

func (c *Client) frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seqNo
}
