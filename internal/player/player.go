// Package player is the interactive counterpart of the exporter: the same
// timeline lookup, painter and scheduled track, but t moves under user
// control. There is no second source of truth for "current scene": every
// derived value (active entry, progress, frame) is recomputed from t and the
// timeline on demand.
package player

import (
	"image"
	"math"

	"github.com/ivlev/storyreel/internal/assets"
	"github.com/ivlev/storyreel/internal/audio"
	"github.com/ivlev/storyreel/internal/render"
	"github.com/ivlev/storyreel/internal/timeline"
)

type Player struct {
	Timeline timeline.Timeline
	Assets   []*assets.Asset
	Renderer *render.Renderer

	// Loop restarts playback from zero when t reaches the total duration
	// instead of entering the finished state.
	Loop bool

	track    *audio.Track // nil means a pure timer-driven session
	t        float64
	finished bool
}

// New builds a player over an already preloaded scene set. track may be nil;
// without it every scene advances on the manual timer.
func New(tl timeline.Timeline, loaded []*assets.Asset, r *render.Renderer, track *audio.Track) *Player {
	p := &Player{
		Timeline: tl,
		Assets:   loaded,
		Renderer: r,
		track:    track,
	}
	if track != nil {
		track.SeekTo(0)
	}
	if tl.Total == 0 {
		p.finished = true
	}
	return p
}

// Advance moves playback forward by dt seconds. While the active scene has
// audio, the track position is advanced and t is read back from the track
// clock; otherwise t increments directly and the track is dragged along so a
// later audio scene starts in sync.
func (p *Player) Advance(dt float64) {
	if p.finished || dt <= 0 {
		return
	}

	if p.audioDriven() {
		p.track.Advance(int(math.Round(dt * float64(p.track.Rate()))))
		p.t = p.track.Clock()
	} else {
		p.t += dt
		if p.track != nil {
			p.track.SeekTo(p.t)
		}
	}

	if p.t >= p.Timeline.Total {
		if p.Loop {
			p.Seek(0)
			return
		}
		p.t = p.Timeline.Total
		p.finished = true
	}
}

// Seek jumps to timeline second ts, clamped to [0, total]. The active entry
// and progress fraction follow from t alone; the audio position is moved to
// the same instant.
func (p *Player) Seek(ts float64) {
	if ts < 0 {
		ts = 0
	}
	if ts > p.Timeline.Total {
		ts = p.Timeline.Total
	}
	p.t = ts
	p.finished = p.Timeline.Total == 0 || ts >= p.Timeline.Total
	if p.track != nil {
		p.track.SeekTo(ts)
	}
}

// Position returns the current playback instant in timeline seconds.
func (p *Player) Position() float64 { return p.t }

// Finished reports whether finite playback has reached the end.
func (p *Player) Finished() bool { return p.finished }

// Scene returns the index of the active timeline entry, -1 when none.
func (p *Player) Scene() int { return p.Timeline.Index(p.t) }

// Frame paints the current instant.
func (p *Player) Frame() *image.RGBA {
	return p.Renderer.Frame(p.Timeline, p.Assets, p.t)
}

func (p *Player) audioDriven() bool {
	if p.track == nil {
		return false
	}
	idx := p.Timeline.Index(p.t)
	if idx < 0 || idx >= len(p.Assets) || p.Assets[idx] == nil {
		return false
	}
	return !p.Assets[idx].Silent()
}
