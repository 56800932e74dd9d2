// Package emotion maps landmark features onto a closed set of emotion labels.
package emotion

import (
	"errors"
	"fmt"
	"strings"
)

// Emotion enumerates the labels the classifier can produce.
type Emotion int

const (
	Neutral Emotion = iota
	Sleepy
	Happy
	Surprised
	Sad
)

// ErrUnknownEmotion is returned by ParseEmotion for names outside the enum.
var ErrUnknownEmotion = errors.New("unknown emotion")

var names = [...]string{
	Neutral:   "neutral",
	Sleepy:    "sleepy",
	Happy:     "happy",
	Surprised: "surprised",
	Sad:       "sad",
}

// All returns every label in declaration order.
func All() []Emotion {
	return []Emotion{Neutral, Sleepy, Happy, Surprised, Sad}
}

func (e Emotion) String() string {
	if e.Valid() {
		return names[e]
	}
	return "unknown"
}

// Label is the upper-case text drawn on the avatar.
func (e Emotion) Label() string {
	return strings.ToUpper(e.String())
}

// Valid reports whether e is one of the declared labels.
func (e Emotion) Valid() bool {
	return e >= Neutral && int(e) < len(names)
}

// ParseEmotion accepts the lower- or upper-case name.
func ParseEmotion(s string) (Emotion, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n == want {
			return Emotion(i), nil
		}
	}
	return Neutral, fmt.Errorf("%w: %q", ErrUnknownEmotion, s)
}

func (e Emotion) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEmotion, int(e))
	}
	return []byte(e.String()), nil
}

func (e *Emotion) UnmarshalText(b []byte) error {
	v, err := ParseEmotion(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}
