// Package portaudio is the alternate audio backend, for hosts where
// miniaudio misbehaves.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/aircasthq/panel-core/core/audio"
	"github.com/gordonklaus/portaudio"
)

type Client struct {
	bufferSize  int
	stream      *portaudio.Stream
	queuedAudio []byte

	in  []int16
	out []int16
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, bufferSize)
	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, audio.DefaultSampleRate, bufferSize, in, out)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start portaudio stream: %w", err)
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
		out:        out,
	}, nil
}

// StartAudienceCapture streams microphone frames into onAudio until ctx is
// cancelled.
func (c *Client) StartAudienceCapture(ctx context.Context, onAudio func(audio []byte)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := c.stream.Read(); err != nil {
				return fmt.Errorf("failed to read from portaudio stream: %w", err)
			}

			audioBuffer := bytes.Buffer{}
			if err := binary.Write(&audioBuffer, binary.LittleEndian, c.in); err != nil {
				return fmt.Errorf("failed to encode captured audio: %w", err)
			}
			onAudio(audioBuffer.Bytes())
		}
	}
}

func (c *Client) SendAudio(audio []byte) error {
	bufferSize := c.bufferSize * 2

	audio = append(c.queuedAudio, audio...)
	for i := range len(audio)/bufferSize + 1 {
		if (i+1)*bufferSize > len(audio) {
			c.queuedAudio = make([]byte, len(audio)-i*bufferSize)
			copy(c.queuedAudio, audio[i*bufferSize:])
			break
		}

		if err := binary.Read(bytes.NewBuffer(audio[i*bufferSize:(i+1)*bufferSize]), binary.LittleEndian, c.out); err != nil {
			return fmt.Errorf("failed to decode queued audio: %w", err)
		}
		if err := c.stream.Write(); err != nil {
			return fmt.Errorf("failed to write to portaudio stream: %w", err)
		}
	}

	return nil
}

func (c *Client) ClearBuffer() {
	c.queuedAudio = make([]byte, 0)
}

// Devices enumerates the host's audio devices for the dashboard's picker.
func (c *Client) Devices() ([]audio.Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate portaudio devices: %w", err)
	}

	defaultOutput, _ := portaudio.DefaultOutputDevice()
	defaultInput, _ := portaudio.DefaultInputDevice()

	devices := make([]audio.Device, 0, len(infos))
	for _, info := range infos {
		if info.MaxOutputChannels > 0 {
			devices = append(devices, audio.Device{
				Name:      info.Name,
				IsDefault: defaultOutput != nil && info.Name == defaultOutput.Name,
			})
		}
		if info.MaxInputChannels > 0 {
			devices = append(devices, audio.Device{
				Name:      info.Name,
				IsCapture: true,
				IsDefault: defaultInput != nil && info.Name == defaultInput.Name,
			})
		}
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
	c.stream.Close()
	portaudio.Terminate()
}
