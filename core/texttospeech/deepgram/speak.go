// Package deepgram synthesizes panel speech through Deepgram's speak
// websocket.
package deepgram

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/websocket/interfaces"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces/v1"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/speak"

	"github.com/aircasthq/panel-core/core/audio"
	"github.com/aircasthq/panel-core/core/texttospeech"
)

const defaultVoice = "aura-2-thalia-en"

// idleWindow is how long after the last audio chunk the stream is considered
// finished.
const idleWindow = 400 * time.Millisecond

func AvailableVoices() []string {
	return []string{
		"aura-2-thalia-en",
		"aura-2-andromeda-en",
		"aura-2-helena-en",
		"aura-2-apollo-en",
		"aura-2-arcas-en",
		"aura-2-aries-en",
		"aura-asteria-en",
		"aura-orion-en",
	}
}

// Client voices utterances one at a time. Each Speak call opens a websocket,
// streams the audio chunks into the configured callback and blocks until the
// utterance has been fully delivered or ctx is cancelled.
type Client struct {
	apiKey  string
	options texttospeech.SynthesisOptions
}

func NewClient(apiKey string, opts ...texttospeech.SynthesisOption) *Client {
	options := texttospeech.SynthesisOptions{
		EncodingInfo: audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Client{apiKey: apiKey, options: options}
}

func (c *Client) Speak(ctx context.Context, voice string, text string) error {
	if text == "" {
		return nil
	}
	if voice == "" || !slices.Contains(AvailableVoices(), voice) {
		voice = defaultVoice
	}

	options := &clientinterfaces.WSSpeakOptions{
		Model:      voice,
		Encoding:   c.options.EncodingInfo.Format.Name(),
		SampleRate: c.options.EncodingInfo.SampleRate,
	}

	var lastRecvUnix int64
	var seenAudio int32

	callback := &speakCallback{onBinary: func(data []byte) error {
		if len(data) == 0 {
			return nil
		}
		atomic.StoreInt64(&lastRecvUnix, time.Now().UnixNano())
		atomic.StoreInt32(&seenAudio, 1)

		if c.options.SpeechAudioCallback != nil {
			chunk := make([]byte, len(data))
			copy(chunk, data)
			c.options.SpeechAudioCallback(chunk)
		}
		return nil
	}}

	dg, err := speak.NewWSUsingCallback(ctx, c.apiKey, &clientinterfaces.ClientOptions{}, options, callback)
	if err != nil {
		return c.fail(fmt.Errorf("failed to create speak client: %w", err))
	}

	stopped := false
	stopClient := func() {
		if !stopped {
			stopped = true
			dg.Stop()
		}
	}
	defer stopClient()

	if ok := dg.Connect(); !ok {
		return c.fail(fmt.Errorf("failed to connect to speak websocket"))
	}

	if err := dg.SpeakWithText(text); err != nil {
		return c.fail(fmt.Errorf("failed to send text: %w", err))
	}
	if err := dg.Flush(); err != nil {
		log.Println("Warning: speak flush failed:", err)
	}

	// The stream carries no explicit end-of-utterance marker at this layer;
	// a quiet gap after the first audio means the voice is done.
	deadline := time.Now().Add(15*time.Second + spokenBudget(text))
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if atomic.LoadInt32(&seenAudio) == 1 {
				last := time.Unix(0, atomic.LoadInt64(&lastRecvUnix))
				if time.Since(last) > idleWindow {
					if c.options.SpeechEndedCallback != nil {
						c.options.SpeechEndedCallback()
					}
					return nil
				}
			}
			if time.Now().After(deadline) {
				return c.fail(fmt.Errorf("timed out waiting for speech audio"))
			}
		}
	}
}

func (c *Client) fail(err error) error {
	if c.options.ErrorCallback != nil {
		c.options.ErrorCallback(err)
	}
	return err
}

// spokenBudget pads the delivery deadline proportionally to the utterance
// length.
func spokenBudget(text string) time.Duration {
	return time.Duration(len(strings.Fields(text))) * 500 * time.Millisecond
}

type speakCallback struct{ onBinary func([]byte) error }

func (s *speakCallback) Open(*msginterfaces.OpenResponse) error         { return nil }
func (s *speakCallback) Metadata(*msginterfaces.MetadataResponse) error { return nil }
func (s *speakCallback) Flush(*msginterfaces.FlushedResponse) error     { return nil }
func (s *speakCallback) Clear(*msginterfaces.ClearedResponse) error     { return nil }
func (s *speakCallback) Close(*msginterfaces.CloseResponse) error       { return nil }
func (s *speakCallback) Warning(*msginterfaces.WarningResponse) error   { return nil }
func (s *speakCallback) Error(*msginterfaces.ErrorResponse) error       { return nil }
func (s *speakCallback) UnhandledEvent([]byte) error                    { return nil }
func (s *speakCallback) Binary(data []byte) error {
	if s.onBinary != nil {
		return s.onBinary(data)
	}
	return nil
}
