package capture

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavFlushSamples is how many samples accumulate before a flush to the
// encoder.
const wavFlushSamples = 2048

// WavSpec describes the fixed output format of every file in a run.
type WavSpec struct {
	SampleRate int
	Channels   int
}

// BitDepth is the fixed output sample width. Incoming formats are
// truncated to this; there is no resampling or dithering.
const BitDepth = 16

// NewWavOpener returns an OpenFunc creating 16-bit PCM WAV files with
// the given spec.
func NewWavOpener(spec WavSpec) OpenFunc {
	return func(path string) (Encoder, error) {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", path, err)
		}
		return &wavEncoder{
			f:   f,
			enc: wav.NewEncoder(f, spec.SampleRate, BitDepth, spec.Channels, 1),
			buf: &audio.IntBuffer{
				Format: &audio.Format{
					NumChannels: spec.Channels,
					SampleRate:  spec.SampleRate,
				},
				Data:           make([]int, 0, wavFlushSamples),
				SourceBitDepth: BitDepth,
			},
		}, nil
	}
}

type wavEncoder struct {
	f   *os.File
	enc *wav.Encoder
	buf *audio.IntBuffer
}

func (w *wavEncoder) WriteSample(v int16) error {
	w.buf.Data = append(w.buf.Data, int(v))
	if len(w.buf.Data) >= wavFlushSamples {
		return w.flush()
	}
	return nil
}

func (w *wavEncoder) flush() error {
	if len(w.buf.Data) == 0 {
		return nil
	}
	err := w.enc.Write(w.buf)
	w.buf.Data = w.buf.Data[:0]
	return err
}

func (w *wavEncoder) Close() error {
	if err := w.flush(); err != nil {
		w.f.Close()
		return err
	}
	if err := w.enc.Close(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
