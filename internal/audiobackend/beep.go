// Package audiobackend adapts faiface/beep into engine.Audio. It decodes
// the beep tone once at startup and replays it on every PlayTone event;
// StopTone is a no-op since beep has no sustained-tone primitive to cut off.
package audiobackend

import (
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/pkg/errors"
)

// Speaker plays a decoded mp3 beep through faiface/beep's global speaker.
type Speaker struct {
	streamer beep.StreamSeekCloser
	format   beep.Format
}

// NewSpeaker opens and decodes the beep asset at path and initializes the
// speaker for playback. Returns an error if the asset is missing or
// undecodable; callers may treat a missing asset as "run silent".
func NewSpeaker(path string) (*Speaker, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open beep asset")
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		return nil, errors.Wrap(err, "decode beep asset")
	}

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		streamer.Close()
		return nil, errors.Wrap(err, "initialize speaker")
	}

	return &Speaker{streamer: streamer, format: format}, nil
}

// PlayTone rewinds the decoded stream and plays it from the top. The sound
// timer fires this on every 60Hz tick the timer is nonzero, so the tone
// retriggers continuously for the duration of the countdown.
func (s *Speaker) PlayTone() {
	if s == nil || s.streamer == nil {
		return
	}
	if err := s.streamer.Seek(0); err != nil {
		return
	}
	speaker.Play(s.streamer)
}

// StopTone is a no-op: beep's speaker has no "silence now" primitive, and
// the short beep clip naturally finishes well inside one timer tick.
func (s *Speaker) StopTone() {}

// Close releases the decoded stream.
func (s *Speaker) Close() error {
	if s == nil || s.streamer == nil {
		return nil
	}
	return s.streamer.Close()
}
