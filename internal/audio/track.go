// Package audio schedules decoded narration clips onto a single
// sample-indexed track. The track's read cursor is the authoritative clock
// for export: video frames are derived from it, never from wall time, so
// audio and video cannot drift apart over long renders.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/ivlev/storyreel/internal/assets"
	"github.com/ivlev/storyreel/internal/timeline"
)

// DefaultEpoch is the fixed lead-in before the first scene. A schedule at
// offset zero would ask the clock to start a buffer in the past; the epoch
// guarantees the clock is strictly running before any clip is due.
const DefaultEpoch = 0.1

const bytesPerSample = 2

// Track is one contiguous interleaved s16le buffer covering epoch + total
// timeline duration, with every scene's clip already placed at its offset.
type Track struct {
	data     []byte
	rate     int
	channels int
	epoch    float64
	cursor   int // frames consumed
}

// Schedule places every scene's PCM at epoch + entry.Start in one
// synchronous pass, independent of any render loop cadence. Scenes without
// audio reserve their interval as silence. assets must align
// index-for-index with the timeline entries; a mismatch means the schedule
// would be partial, which is never valid.
func Schedule(tl timeline.Timeline, loaded []*assets.Asset, epoch float64, rate, channels int) (*Track, error) {
	if len(loaded) != len(tl.Entries) {
		return nil, fmt.Errorf("schedule mismatch: %d assets for %d timeline entries", len(loaded), len(tl.Entries))
	}
	if rate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid stream spec: rate=%d channels=%d", rate, channels)
	}
	if epoch < DefaultEpoch {
		epoch = DefaultEpoch
	}

	t := &Track{
		rate:     rate,
		channels: channels,
		epoch:    epoch,
	}
	frames := int(math.Ceil((epoch + tl.Total) * float64(rate)))
	t.data = make([]byte, frames*t.frameBytes())

	for i, e := range tl.Entries {
		a := loaded[i]
		if a == nil {
			return nil, fmt.Errorf("schedule mismatch: no asset for timeline entry %d", i)
		}
		if a.Silent() {
			continue
		}
		offset := int(math.Round((epoch+e.Start)*float64(rate))) * t.frameBytes()
		mixInto(t.data[offset:], a.PCM)
	}
	return t, nil
}

// mixInto adds src samples onto dst with int16 saturation, clipped to dst's
// length. dst starts as silence, so non-overlapping clips are plain copies;
// saturation only matters if a clip overruns into its neighbour.
func mixInto(dst, src []byte) {
	n := len(src)
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i+1 < n; i += 2 {
		a := int32(int16(binary.LittleEndian.Uint16(dst[i:])))
		b := int32(int16(binary.LittleEndian.Uint16(src[i:])))
		sum := a + b
		if sum > math.MaxInt16 {
			sum = math.MaxInt16
		} else if sum < math.MinInt16 {
			sum = math.MinInt16
		}
		binary.LittleEndian.PutUint16(dst[i:], uint16(int16(sum)))
	}
}

func (t *Track) frameBytes() int { return t.channels * bytesPerSample }

// Frames is the total frame count of the track.
func (t *Track) Frames() int { return len(t.data) / t.frameBytes() }

// Duration is the track length in seconds, including the epoch lead-in.
func (t *Track) Duration() float64 { return float64(t.Frames()) / float64(t.rate) }

// Epoch returns the lead-in offset chosen at scheduling time.
func (t *Track) Epoch() float64 { return t.epoch }

// Rate returns the track's sample rate in frames per second.
func (t *Track) Rate() int { return t.rate }

// Advance consumes n frames, saturating at the end of the track.
func (t *Track) Advance(n int) {
	t.cursor += n
	if t.cursor > t.Frames() {
		t.cursor = t.Frames()
	}
}

// Clock converts the cursor to timeline seconds. It reads negative inside
// the epoch lead-in, 0 at the first scene's start.
func (t *Track) Clock() float64 {
	return float64(t.cursor)/float64(t.rate) - t.epoch
}

// SeekTo repositions the cursor at timeline second ts.
func (t *Track) SeekTo(ts float64) {
	frame := int(math.Round((ts + t.epoch) * float64(t.rate)))
	if frame < 0 {
		frame = 0
	}
	if frame > t.Frames() {
		frame = t.Frames()
	}
	t.cursor = frame
}

// Rewind resets the cursor to the start of the epoch lead-in.
func (t *Track) Rewind() { t.cursor = 0 }

// WriteWAV serializes the whole track as a 16-bit PCM RIFF/WAVE stream for
// the muxer's audio input.
func (t *Track) WriteWAV(w io.Writer) error {
	dataLen := len(t.data)
	byteRate := t.rate * t.frameBytes()

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(t.channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(t.rate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(t.frameBytes()))
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(t.data)
	return err
}
