package scene

import "testing"

func TestResolveDuration(t *testing.T) {
	tests := []struct {
		name      string
		manual    float64
		audio     float64
		estimated float64
		expected  float64
	}{
		{"decoded audio replaces a longer estimate", 0, 4.0, 5.0, 4.0},
		{"decoded audio replaces a shorter estimate", 0, 6.5, 6.0, 6.5},
		{"estimate holds when no audio resolved", 0, 0, 3.0, 3.0},
		{"manual wins when longest", 10.0, 4.0, 3.0, 10.0},
		{"manual below audio does not truncate", 2.0, 4.0, 3.0, 4.0},
		{"floor applies to empty scene", 0, 0, 0, MinDuration},
		{"floor applies to sub-second inputs", 0.2, 0.3, 0.1, MinDuration},
		{"negative inputs ignored", -5, -1, -2, MinDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Scene{
				ManualDuration:        tt.manual,
				ResolvedAudioDuration: tt.audio,
				EstimatedDuration:     tt.estimated,
			}
			got := ResolveDuration(s)
			if got != tt.expected {
				t.Errorf("expected %.2f, got %.2f", tt.expected, got)
			}
		})
	}
}

func TestResolveDurationIdempotent(t *testing.T) {
	s := &Scene{ManualDuration: 5.5, ResolvedAudioDuration: 4.2, EstimatedDuration: 3.0}
	first := ResolveDuration(s)
	for i := 0; i < 100; i++ {
		if got := ResolveDuration(s); got != first {
			t.Fatalf("iteration %d: got %.6f, expected %.6f", i, got, first)
		}
	}
}

// Setting the override to any value >= the audio duration moves the final
// duration to exactly that value; below it, the audio duration holds.
func TestResolveDurationOverrideMonotonic(t *testing.T) {
	s := &Scene{ResolvedAudioDuration: 6.5, EstimatedDuration: 2.0}

	for _, manual := range []float64{6.5, 7.0, 12.25, 60.0} {
		s.ManualDuration = manual
		if got := ResolveDuration(s); got != manual {
			t.Errorf("manual=%.2f: expected %.2f, got %.2f", manual, manual, got)
		}
	}
	for _, manual := range []float64{0, 1.0, 3.0, 6.4} {
		s.ManualDuration = manual
		if got := ResolveDuration(s); got != 6.5 {
			t.Errorf("manual=%.2f: expected audio duration 6.5, got %.2f", manual, got)
		}
	}
}
