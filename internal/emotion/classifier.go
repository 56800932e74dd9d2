package emotion

import "github.com/dj-oyu/moodface/internal/landmark"

// Cascade thresholds. Comparisons are strict, so a value sitting exactly on
// a threshold falls through to the next rule.
const (
	EyesClosedBelow = 0.015
	MouthOpenAbove  = 0.08
	LipDroopAbove   = 0.03
	WideSmileAbove  = 0.16
	DefaultRuleName = "default"
	NoFaceRuleName  = "no-face"
)

// Rule is one predicate/label pair of the cascade.
type Rule struct {
	Name    string
	Match   func(landmark.FeatureVector) bool
	Emotion Emotion
}

// Cascade evaluates rules top to bottom; the first match wins.
// It is a priority list, not a score.
type Cascade struct {
	rules    []Rule
	fallback Emotion
}

// DefaultRules returns the reference cascade. Eyes-closed overrides every
// other signal, and visible teeth outrank an open or drooping mouth.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "eyes-closed",
			Match:   func(f landmark.FeatureVector) bool { return f.AvgEyeOpen < EyesClosedBelow },
			Emotion: Sleepy,
		},
		{
			Name:    "teeth",
			Match:   func(f landmark.FeatureVector) bool { return f.ShowingTeeth },
			Emotion: Happy,
		},
		{
			Name:    "mouth-open",
			Match:   func(f landmark.FeatureVector) bool { return f.MouthOpenness > MouthOpenAbove },
			Emotion: Surprised,
		},
		{
			Name:    "lip-droop",
			Match:   func(f landmark.FeatureVector) bool { return f.LipDroop > LipDroopAbove },
			Emotion: Sad,
		},
		// Kept apart from "teeth": both yield Happy but on different geometry.
		{
			Name:    "wide-smile",
			Match:   func(f landmark.FeatureVector) bool { return f.MouthWidth > WideSmileAbove },
			Emotion: Happy,
		},
	}
}

// NewCascade builds a cascade that returns fallback when no rule matches.
func NewCascade(rules []Rule, fallback Emotion) *Cascade {
	return &Cascade{rules: append([]Rule(nil), rules...), fallback: fallback}
}

var defaultCascade = NewCascade(DefaultRules(), Neutral)

// Default returns the shared reference cascade. Cascades are immutable and
// safe for concurrent use.
func Default() *Cascade {
	return defaultCascade
}

// Rules returns a copy of the ordered rule list.
func (c *Cascade) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// Classify returns the label of the first matching rule.
func (c *Cascade) Classify(f landmark.FeatureVector) Emotion {
	e, _ := c.Explain(f)
	return e
}

// Explain is Classify plus the name of the rule that fired.
func (c *Cascade) Explain(f landmark.FeatureVector) (Emotion, string) {
	for _, r := range c.rules {
		if r.Match(f) {
			return r.Emotion, r.Name
		}
	}
	return c.fallback, DefaultRuleName
}

// Classify runs the reference cascade.
func Classify(f landmark.FeatureVector) Emotion {
	return defaultCascade.Classify(f)
}
