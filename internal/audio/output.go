package audio

import (
	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// Output is the audio device the sink feeds.
type Output interface {
	Init(sampleRate beep.SampleRate, bufferSize int) error
	Play(s ...beep.Streamer)
	Close()
}

// SpeakerOutput is the process-wide default output device.
type SpeakerOutput struct{}

var _ Output = SpeakerOutput{}

func (SpeakerOutput) Init(sampleRate beep.SampleRate, bufferSize int) error {
	return speaker.Init(sampleRate, bufferSize)
}

func (SpeakerOutput) Play(s ...beep.Streamer) {
	speaker.Play(s...)
}

func (SpeakerOutput) Close() {
	speaker.Close()
}
