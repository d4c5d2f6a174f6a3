// Package miniaudio is the malgo-backed audio client: it plays the
// synthesized panel audio on the broadcast output, captures the audience
// line, and enumerates devices for the dashboard.
package miniaudio

import (
	"context"
	"fmt"

	"github.com/aircasthq/panel-core/core/audio"
	"github.com/gen2brain/malgo"
)

type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackClient
	captureClient
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) {},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{audioContext: audioCtx}

	if err := client.playbackClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}

	if err := client.playbackClient.Start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	if err := client.captureClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture client: %w", err)
	}

	return &client, nil
}

// StartAudienceCapture streams the audience line's microphone into onAudio
// until stopped.
func (c *Client) StartAudienceCapture(_ context.Context, onAudio func(audio []byte)) error {
	return c.captureClient.Start(onAudio)
}

func (c *Client) StopAudienceCapture() error {
	return c.captureClient.Stop()
}

// SendAudio queues synthesized panel audio on the broadcast output.
func (c *Client) SendAudio(audio []byte) error {
	return c.playbackClient.SendAudio(audio)
}

// AwaitPlayback blocks until every queued chunk has been played out.
func (c *Client) AwaitPlayback() error {
	return c.playbackClient.AwaitMark()
}

func (c *Client) ClearBuffer() {
	c.playbackClient.ClearBuffer()
}

// Devices enumerates playback and capture devices for the dashboard's device
// picker.
func (c *Client) Devices() ([]audio.Device, error) {
	devices := []audio.Device{}

	playback, err := c.audioContext.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate playback devices: %w", err)
	}
	for _, info := range playback {
		devices = append(devices, audio.Device{
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
		})
	}

	capture, err := c.audioContext.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}
	for _, info := range capture {
		devices = append(devices, audio.Device{
			Name:      info.Name(),
			IsCapture: true,
			IsDefault: info.IsDefault != 0,
		})
	}

	return devices, nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}

func (c *Client) Close() {
	_ = c.captureClient.Uninit()
	_ = c.playbackClient.Uninit()
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}
