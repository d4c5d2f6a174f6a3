package orchestration

import (
	"context"
	"fmt"
	"log"
)

type speechSynthesis struct {
	// synthesizer stores the configured voice backend.
	synthesizer SpeechSynthesizer
}

func newSpeechSynthesis(synthesizer SpeechSynthesizer) *speechSynthesis {
	return &speechSynthesis{synthesizer: synthesizer}
}

func (s *speechSynthesis) set(synthesizer SpeechSynthesizer) {
	if s != nil {
		s.synthesizer = synthesizer
	}
}

func (s *speechSynthesis) isConfigured() bool {
	return s != nil && s.synthesizer != nil
}

// speak voices the utterance and blocks until playback finishes or ctx is
// cancelled. Without a synthesizer turns complete as soon as their text is
// ready.
func (s *speechSynthesis) speak(ctx context.Context, voice string, text string) error {
	if !s.isConfigured() {
		return nil
	}

	if err := s.synthesizer.Speak(ctx, voice, text); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// A failed voice is not a failed turn; the text already exists.
		log.Println("Warning: speech synthesis failed:", err)
	}

	return nil
}

func (s *speechSynthesis) Close(ctx context.Context) error {
	if !s.isConfigured() {
		return nil
	}

	switch c := s.synthesizer.(type) {
	case interface{ Close(context.Context) error }:
		if err := c.Close(ctx); err != nil {
			return fmt.Errorf("failed to close speech synthesizer: %w", err)
		}
	case interface{ Close(context.Context) }:
		c.Close(ctx)
	case interface{ Close() error }:
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close speech synthesizer: %w", err)
		}
	case interface{ Close() }:
		c.Close()
	}

	return nil
}
