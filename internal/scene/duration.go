package scene

// MinDuration is the floor preventing zero or negative length scenes.
const MinDuration = 1.0

// ResolveDuration computes the single authoritative duration for a scene in
// seconds. Once the audio clip has been decoded its real duration replaces
// the producer's estimate; the estimate only holds for scenes whose audio
// never resolved. The manual override feeds a max rather than replacing the
// result: truncating a voice-over is never correct, so an override below the
// audio length cannot shorten the scene below it. MinDuration floors the
// result.
//
// Pure and deterministic. The timeline is rebuilt on every scene mutation,
// so recomputation under identical inputs must yield the identical value.
func ResolveDuration(s *Scene) float64 {
	base := s.EstimatedDuration
	if s.ResolvedAudioDuration > 0 {
		base = s.ResolvedAudioDuration
	}

	d := MinDuration
	if base > d {
		d = base
	}
	if s.ManualDuration > d {
		d = s.ManualDuration
	}
	return d
}
