package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/ivlev/storyreel/internal/assets"
	"github.com/ivlev/storyreel/internal/scene"
	"github.com/ivlev/storyreel/internal/timeline"
)

const (
	testRate     = 8000
	testChannels = 1
)

// constPCM builds seconds of mono s16le filled with a constant sample value.
func constPCM(seconds float64, value int16) []byte {
	n := int(seconds * testRate)
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(value))
	}
	return buf
}

func sampleAt(t *Track, ts float64) int16 {
	frame := int(math.Round((ts + t.epoch) * float64(t.rate)))
	return int16(binary.LittleEndian.Uint16(t.data[frame*t.frameBytes():]))
}

func buildFixture(t *testing.T) (timeline.Timeline, []*assets.Asset) {
	t.Helper()
	scenes := []*scene.Scene{
		{ID: "a", ResolvedAudioDuration: 2},
		{ID: "b", EstimatedDuration: 1.5}, // silent
		{ID: "c", ResolvedAudioDuration: 1},
	}
	tl := timeline.Build(scenes)
	loaded := []*assets.Asset{
		{Scene: scenes[0], PCM: constPCM(2, 1000), AudioDuration: 2},
		{Scene: scenes[1]},
		{Scene: scenes[2], PCM: constPCM(1, -2000), AudioDuration: 1},
	}
	return tl, loaded
}

func TestSchedulePlacement(t *testing.T) {
	tl, loaded := buildFixture(t)
	track, err := Schedule(tl, loaded, DefaultEpoch, testRate, testChannels)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	wantDur := DefaultEpoch + tl.Total
	if math.Abs(track.Duration()-wantDur) > 1.0/testRate {
		t.Errorf("duration: expected %.3f, got %.3f", wantDur, track.Duration())
	}

	tests := []struct {
		ts   float64
		want int16
	}{
		{-0.05, 0},   // epoch lead-in is silent
		{0.5, 1000},  // scene a
		{1.99, 1000}, // still scene a
		{2.5, 0},     // scene b is silent
		{3.6, -2000}, // scene c starts at 3.5
		{4.4, -2000},
	}
	for _, tt := range tests {
		if got := sampleAt(track, tt.ts); got != tt.want {
			t.Errorf("sample at t=%.2f: expected %d, got %d", tt.ts, tt.want, got)
		}
	}
}

// Adjacent clips must be gapless: the first sample after a boundary belongs
// to the next clip with no silence padding in between.
func TestScheduleGapless(t *testing.T) {
	scenes := []*scene.Scene{
		{ID: "a", ResolvedAudioDuration: 1},
		{ID: "b", ResolvedAudioDuration: 1},
	}
	tl := timeline.Build(scenes)
	loaded := []*assets.Asset{
		{Scene: scenes[0], PCM: constPCM(1, 500), AudioDuration: 1},
		{Scene: scenes[1], PCM: constPCM(1, 700), AudioDuration: 1},
	}
	track, err := Schedule(tl, loaded, DefaultEpoch, testRate, testChannels)
	if err != nil {
		t.Fatal(err)
	}

	half := 0.5 / testRate
	if got := sampleAt(track, 1.0-half); got != 500 {
		t.Errorf("last sample of first clip: expected 500, got %d", got)
	}
	if got := sampleAt(track, 1.0+half); got != 700 {
		t.Errorf("first sample of second clip: expected 700, got %d", got)
	}
}

func TestScheduleRejectsPartialBatch(t *testing.T) {
	tl, loaded := buildFixture(t)
	if _, err := Schedule(tl, loaded[:2], DefaultEpoch, testRate, testChannels); err == nil {
		t.Error("mismatched asset count must fail")
	}
	loaded[1] = nil
	if _, err := Schedule(tl, loaded, DefaultEpoch, testRate, testChannels); err == nil {
		t.Error("nil asset must fail")
	}
}

func TestScheduleEnforcesMinimumEpoch(t *testing.T) {
	tl, loaded := buildFixture(t)
	track, err := Schedule(tl, loaded, 0, testRate, testChannels)
	if err != nil {
		t.Fatal(err)
	}
	if track.Epoch() < DefaultEpoch {
		t.Errorf("epoch must be raised to at least %.2f, got %.2f", DefaultEpoch, track.Epoch())
	}
}

func TestClockAdvanceAndSeek(t *testing.T) {
	tl, loaded := buildFixture(t)
	track, err := Schedule(tl, loaded, DefaultEpoch, testRate, testChannels)
	if err != nil {
		t.Fatal(err)
	}

	if got := track.Clock(); math.Abs(got-(-DefaultEpoch)) > 1e-9 {
		t.Errorf("initial clock: expected %.3f, got %.3f", -DefaultEpoch, got)
	}

	track.Advance(testRate) // one second
	if got := track.Clock(); math.Abs(got-(1.0-DefaultEpoch)) > 1e-9 {
		t.Errorf("clock after 1s: expected %.3f, got %.3f", 1.0-DefaultEpoch, got)
	}

	track.SeekTo(3.5)
	if got := track.Clock(); math.Abs(got-3.5) > 1.0/testRate {
		t.Errorf("clock after seek: expected 3.5, got %.4f", got)
	}

	track.Advance(1 << 30)
	if got := track.Clock(); math.Abs(got-tl.Total) > 1.0/testRate {
		t.Errorf("clock must saturate at total %.2f, got %.4f", tl.Total, got)
	}

	track.Rewind()
	if got := track.Clock(); math.Abs(got-(-DefaultEpoch)) > 1e-9 {
		t.Errorf("clock after rewind: expected %.3f, got %.3f", -DefaultEpoch, got)
	}
}

func TestMixSaturates(t *testing.T) {
	dst := constPCM(0.01, 30000)
	src := constPCM(0.01, 30000)
	mixInto(dst, src)
	if got := int16(binary.LittleEndian.Uint16(dst)); got != math.MaxInt16 {
		t.Errorf("expected saturation at %d, got %d", math.MaxInt16, got)
	}

	dst = constPCM(0.01, -30000)
	mixInto(dst, constPCM(0.01, -30000))
	if got := int16(binary.LittleEndian.Uint16(dst)); got != math.MinInt16 {
		t.Errorf("expected saturation at %d, got %d", math.MinInt16, got)
	}
}

func TestWriteWAV(t *testing.T) {
	tl, loaded := buildFixture(t)
	track, err := Schedule(tl, loaded, DefaultEpoch, testRate, testChannels)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := track.WriteWAV(&buf); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	if len(data) != 44+len(track.data) {
		t.Fatalf("wav length: expected %d, got %d", 44+len(track.data), len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("bad RIFF header")
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != testRate {
		t.Errorf("header rate: expected %d, got %d", testRate, rate)
	}
	if dl := binary.LittleEndian.Uint32(data[40:44]); int(dl) != len(track.data) {
		t.Errorf("data chunk length: expected %d, got %d", len(track.data), dl)
	}
}
