// Package texttospeech defines the synthesis options shared by the speak
// backends.
package texttospeech

import "github.com/aircasthq/panel-core/core/audio"

type SynthesisOptions struct {
	// SpeechAudioCallback is called for every audio chunk the backend
	// produces.
	SpeechAudioCallback func(audio []byte)
	// SpeechEndedCallback is called once all audio for an utterance has been
	// delivered.
	SpeechEndedCallback func()
	// ErrorCallback is called when the backend encounters an error, this
	// usually means synthesis has been cancelled.
	ErrorCallback func(error)

	EncodingInfo audio.EncodingInfo
}

type SynthesisOption func(*SynthesisOptions)

func WithSpeechAudioCallback(callback func([]byte)) SynthesisOption {
	return func(o *SynthesisOptions) { o.SpeechAudioCallback = callback }
}

func WithSpeechEndedCallback(callback func()) SynthesisOption {
	return func(o *SynthesisOptions) { o.SpeechEndedCallback = callback }
}

func WithErrorCallback(callback func(error)) SynthesisOption {
	return func(o *SynthesisOptions) { o.ErrorCallback = callback }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) SynthesisOption {
	return func(o *SynthesisOptions) {
		if encodingInfo.IsZero() {
			return
		}

		o.EncodingInfo = encodingInfo
	}
}
