// Package deepgram transcribes the audience line through Deepgram's listen
// websocket.
package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"

	"github.com/aircasthq/panel-core/core/audio"
	"github.com/aircasthq/panel-core/core/speechtotext"
)

const (
	listenURL    = "wss://api.deepgram.com/v1/listen"
	defaultModel = "nova-3"

	// keepAliveInterval keeps the websocket open across quiet stretches of
	// the audience line.
	keepAliveInterval = 5 * time.Second
)

// TranscriptionClient streams audience audio up and finalized transcripts
// back. One websocket per Transcribe call.
type TranscriptionClient struct {
	apiKey  string
	options speechtotext.TranscriptionOptions

	conn      *websocket.Conn
	connMu    sync.Mutex
	lastMsgTs time.Time

	accumulatedTranscript string
	unendedSegment        bool
}

func NewTranscriptionClient(apiKey string, opts ...speechtotext.TranscriptionOption) *TranscriptionClient {
	options := speechtotext.TranscriptionOptions{
		EncodingInfo: audio.GetDefaultEncodingInfo(),
		Model:        defaultModel,
		Language:     "en-US",
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &TranscriptionClient{apiKey: apiKey, options: options}
}

// Transcribe opens the websocket and starts pumping finalized audience
// transcripts into the channel. It returns once the connection is
// established; the channel closes when the connection does.
func (s *TranscriptionClient) Transcribe(ctx context.Context, transcripts chan<- string) error {
	if s.apiKey == "" {
		return fmt.Errorf("deepgram api key not found")
	}

	conn, err := s.connectWebsocket()
	if err != nil {
		return fmt.Errorf("failed to open websocket: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.lastMsgTs = time.Now()
	s.connMu.Unlock()

	go s.readAndProcessMessages(ctx, conn, transcripts)

	return nil
}

func (s *TranscriptionClient) connectWebsocket() (*websocket.Conn, error) {
	listenUrl, _ := url.Parse(listenURL)
	queryParams := listenUrl.Query()
	queryParams.Set("encoding", s.options.EncodingInfo.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(s.options.EncodingInfo.SampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", s.options.Model)
	queryParams.Set("language", s.options.Language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("interim_results", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("endpointing", "300")
	queryParams.Set("vad_events", "true")

	listenUrl.RawQuery = queryParams.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(listenUrl.String(),
		http.Header{"Authorization": {"Token " + s.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

func (s *TranscriptionClient) SendAudio(audio []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("transcription not started")
	}

	s.lastMsgTs = time.Now()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

func (s *TranscriptionClient) Close(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn != nil {
		if err := s.conn.WriteJSON(struct {
			Type string `json:"type"`
		}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
			return fmt.Errorf("failed to close deepgram stream: %w", err)
		}
	}
	return nil
}

func (s *TranscriptionClient) sendKeepAlive() {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return
	}
	if err := s.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: "KeepAlive"}); err != nil {
		log.Println("Failed to write to deepgram client", "error", err)
	}
}

func (s *TranscriptionClient) readAndProcessMessages(ctx context.Context, conn *websocket.Conn, transcripts chan<- string) {
	keepAliveCtx, keepAliveCancel := context.WithCancel(ctx)
	defer keepAliveCancel()
	go s.keepAlive(keepAliveCtx)

	defer close(transcripts)
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if err.Error() != "websocket: close 1000 (normal)" {
				log.Println("Failed to read deepgram websocket message", "error", err)
			}

			s.connMu.Lock()
			s.conn = nil
			s.connMu.Unlock()
			conn.Close()
			return
		}
		if msgType != websocket.BinaryMessage {
			s.processMessage(msg, transcripts)
		}
	}
}

func (s *TranscriptionClient) processMessage(msg []byte, transcripts chan<- string) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		log.Println("Failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			log.Println("Failed to unmarshal deepgram message", err)
			return
		}

		if len(msgResp.Channel.Alternatives) == 0 {
			return
		}
		transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
		if transcript == "" {
			return
		}

		if msgResp.IsFinal {
			s.accumulatedTranscript += " " + transcript
			if msgResp.SpeechFinal {
				s.flushTranscript(transcripts)
			}
		} else if s.options.InterimCallback != nil {
			s.options.InterimCallback(transcript)
		}

	case api.TypeUtteranceEndResponse:
		if s.unendedSegment {
			s.flushTranscript(transcripts)
		}

	case api.TypeSpeechStartedResponse:
		s.unendedSegment = true
	}
}

func (s *TranscriptionClient) flushTranscript(transcripts chan<- string) {
	s.unendedSegment = false

	fullTranscript := strings.TrimSpace(s.accumulatedTranscript)
	s.accumulatedTranscript = ""
	if fullTranscript != "" {
		transcripts <- fullTranscript
	}
}

func (s *TranscriptionClient) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.connMu.Lock()
			idle := time.Since(s.lastMsgTs) >= keepAliveInterval
			s.connMu.Unlock()
			if idle {
				s.sendKeepAlive()
			}
		}
	}
}
