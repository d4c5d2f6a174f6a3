package orchestration

import (
	"context"
	"fmt"
	"log"
)

type audienceFeed struct {
	// feed stores the configured live transcription source.
	feed SpeechToText
}

func newAudienceFeed(feed SpeechToText) *audienceFeed {
	return &audienceFeed{feed: feed}
}

func (f *audienceFeed) set(feed SpeechToText) {
	if f != nil {
		f.feed = feed
	}
}

func (f *audienceFeed) isConfigured() bool {
	return f != nil && f.feed != nil
}

// Start begins pumping finalized transcripts into the conversation as
// audience messages. It returns once the feed is established; transcripts
// keep arriving until ctx is cancelled.
func (f *audienceFeed) Start(ctx context.Context, submit func(string) error) error {
	if !f.isConfigured() {
		return nil
	}

	transcripts := make(chan string)
	if err := f.feed.Transcribe(ctx, transcripts); err != nil {
		return fmt.Errorf("failed to start audience transcription: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case transcript, ok := <-transcripts:
				if !ok {
					return
				}
				if transcript == "" {
					continue
				}
				if err := submit(transcript); err != nil {
					log.Println("Warning: failed to submit audience transcript:", err)
				}
			}
		}
	}()

	return nil
}

func (f *audienceFeed) SendAudio(data []byte) error {
	if !f.isConfigured() {
		return nil
	}

	return f.feed.SendAudio(data)
}

func (f *audienceFeed) Close(ctx context.Context) error {
	if !f.isConfigured() {
		return nil
	}

	switch c := f.feed.(type) {
	case interface{ Close(context.Context) error }:
		if err := c.Close(ctx); err != nil {
			return fmt.Errorf("failed to close audience feed: %w", err)
		}
	case interface{ Close(context.Context) }:
		c.Close(ctx)
	case interface{ Close() error }:
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close audience feed: %w", err)
		}
	case interface{ Close() }:
		c.Close()
	}

	return nil
}
