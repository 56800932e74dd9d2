package emotion

// Stabilizer adds hysteresis on top of the stateless classifier: the
// published label only changes after the same raw label has been observed
// for minFrames consecutive frames. It is not safe for concurrent use.
type Stabilizer struct {
	minFrames int
	current   Emotion
	candidate Emotion
	streak    int
	started   bool
}

// NewStabilizer returns a stabilizer requiring minFrames consecutive
// observations before switching. minFrames <= 1 disables smoothing.
func NewStabilizer(minFrames int) *Stabilizer {
	if minFrames < 1 {
		minFrames = 1
	}
	return &Stabilizer{minFrames: minFrames}
}

// MinFrames returns the configured switch threshold.
func (s *Stabilizer) MinFrames() int {
	return s.minFrames
}

// Observe feeds one raw label and returns the label to publish.
func (s *Stabilizer) Observe(e Emotion) Emotion {
	// The very first observation is adopted immediately.
	if !s.started || s.minFrames == 1 {
		s.started = true
		s.current, s.candidate, s.streak = e, e, 1
		return e
	}

	if e == s.current {
		s.candidate, s.streak = e, 0
		return s.current
	}

	if e == s.candidate {
		s.streak++
	} else {
		s.candidate, s.streak = e, 1
	}
	if s.streak >= s.minFrames {
		s.current, s.streak = e, 0
	}
	return s.current
}

// Current returns the last published label.
func (s *Stabilizer) Current() Emotion {
	return s.current
}

// Reset forgets all history.
func (s *Stabilizer) Reset() {
	s.current, s.candidate, s.streak, s.started = Neutral, Neutral, 0, false
}
