// Package deepgram provides a Deepgram-backed STT provider using the Deepgram
// streaming WebSocket API. It implements the stt.Provider interface.
//
// Audio capture is supplied by the caller as an AudioSource; each session
// pumps PCM chunks from a fresh source reader into the socket and converts
// Deepgram result messages into stt.TranscriptEvent values.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/voxnav/voxnav/pkg/provider/stt"
)

const (
	endpoint          = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-3"
	defaultLanguage   = "en"
	defaultSampleRate = 16000
	chunkSize         = 4096
)

// AudioSource opens a PCM byte stream for one recognition session. It is
// called once per session; the returned reader is closed when the session ends.
type AudioSource func(ctx context.Context) (io.ReadCloser, error)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithEndpoint overrides the streaming endpoint URL. Used by tests.
func WithEndpoint(u string) Option {
	return func(p *Provider) { p.endpoint = u }
}

// Provider implements stt.Provider backed by the Deepgram streaming API.
type Provider struct {
	apiKey   string
	model    string
	endpoint string
	source   AudioSource
}

// New creates a Provider. apiKey must be non-empty and source must not be nil.
func New(apiKey string, source AudioSource, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	if source == nil {
		return nil, errors.New("deepgram: audio source must not be nil")
	}
	p := &Provider{
		apiKey:   apiKey,
		model:    defaultModel,
		endpoint: endpoint,
		source:   source,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Start opens a streaming recognition session.
func (p *Provider) Start(ctx context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	wsURL, err := p.buildURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return nil, &stt.SessionError{Kind: stt.KindNetwork, Err: fmt.Errorf("deepgram: dial: %w", err)}
	}

	audio, err := p.source(ctx)
	if err != nil {
		conn.Close(websocket.StatusNormalClosure, "no audio source")
		return nil, &stt.SessionError{Kind: stt.KindAudioCapture, Err: fmt.Errorf("deepgram: open audio source: %w", err)}
	}

	sess := &session{
		conn:   conn,
		audio:  audio,
		events: make(chan stt.TranscriptEvent, 64),
		done:   make(chan struct{}),
	}

	sess.wg.Add(2)
	go sess.readLoop(ctx)
	go sess.writeLoop(ctx)

	return sess, nil
}

// buildURL constructs the streaming endpoint URL for the given config.
func (p *Provider) buildURL(cfg stt.StreamConfig) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", err
	}

	lang := cfg.Language
	if lang == "" {
		lang = defaultLanguage
	}
	sr := cfg.SampleRate
	if sr == 0 {
		sr = defaultSampleRate
	}

	q := u.Query()
	q.Set("model", p.model)
	q.Set("language", lang)
	q.Set("punctuate", "true")
	q.Set("interim_results", strconv.FormatBool(cfg.InterimResults))
	q.Set("sample_rate", strconv.Itoa(sr))
	q.Set("encoding", "linear16")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// resultMessage is the JSON structure Deepgram sends for a Results event.
type resultMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// session is a live streaming session. It implements stt.SessionHandle.
type session struct {
	conn   *websocket.Conn
	audio  io.ReadCloser
	events chan stt.TranscriptEvent

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup

	errMu sync.Mutex
	err   error
}

// Events returns the transcript stream.
func (s *session) Events() <-chan stt.TranscriptEvent { return s.events }

// Err reports why the session ended. Valid once Events is closed.
func (s *session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// setErr records the first session-ending error.
func (s *session) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Close terminates the session cleanly. Safe to call multiple times.
func (s *session) Close() error {
	s.once.Do(func() {
		close(s.done)
		_ = s.audio.Close()
		// Ask Deepgram to flush pending audio before the socket drops.
		_ = s.conn.Write(context.Background(), websocket.MessageText, []byte(`{"type":"CloseStream"}`))
		s.conn.Close(websocket.StatusNormalClosure, "session closed")
		s.wg.Wait()
	})
	return nil
}

// writeLoop pumps PCM chunks from the audio source into the socket.
func (s *session) writeLoop(ctx context.Context) {
	defer s.wg.Done()
	buf := make([]byte, chunkSize)
	for {
		select {
		case <-s.done:
			return
		default:
		}
		n, err := s.audio.Read(buf)
		if n > 0 {
			if werr := s.conn.Write(ctx, websocket.MessageBinary, buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.setErr(&stt.SessionError{Kind: stt.KindAudioCapture, Err: err})
			}
			return
		}
	}
}

// readLoop converts result messages into transcript events. It owns closing
// the events channel.
func (s *session) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.events)

	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			select {
			case <-s.done:
				// Explicit Close: a clean end.
			default:
				s.setErr(classifyReadError(err))
			}
			return
		}

		ev, ok := parseResult(msg)
		if !ok {
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

// classifyReadError maps a socket read failure onto a session error kind.
func classifyReadError(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &stt.SessionError{Kind: stt.KindNoSpeech, Err: err}
	}
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		return nil
	}
	return &stt.SessionError{Kind: stt.KindNetwork, Err: err}
}

// parseResult parses a raw Deepgram message into a TranscriptEvent.
// Returns (event, true) on success, or (zero, false) for ignorable messages.
func parseResult(data []byte) (stt.TranscriptEvent, bool) {
	var msg resultMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return stt.TranscriptEvent{}, false
	}
	if msg.Type != "Results" || len(msg.Channel.Alternatives) == 0 {
		return stt.TranscriptEvent{}, false
	}
	alt := msg.Channel.Alternatives[0]
	if alt.Transcript == "" {
		return stt.TranscriptEvent{}, false
	}
	return stt.TranscriptEvent{
		Text:       alt.Transcript,
		IsFinal:    msg.IsFinal,
		Confidence: alt.Confidence,
		At:         time.Now(),
	}, true
}
