// Package speechtotext defines the transcription options shared by the
// listen backends.
package speechtotext

import "github.com/aircasthq/panel-core/core/audio"

type TranscriptionOptions struct {
	EncodingInfo audio.EncodingInfo

	// Model picks the transcription model. Empty means the backend default.
	Model string
	// Language hints the spoken language, BCP-47.
	Language string
	// InterimCallback receives unstable partial transcripts as speech is
	// still in progress. Final transcripts always flow through the
	// transcript channel.
	InterimCallback func(transcript string)
}

type TranscriptionOption func(*TranscriptionOptions)

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if encodingInfo.IsZero() {
			return
		}

		o.EncodingInfo = encodingInfo
	}
}

func WithModel(model string) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.Model = model }
}

func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.Language = language }
}

func WithInterimCallback(callback func(string)) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.InterimCallback = callback }
}
