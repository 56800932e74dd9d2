package codec

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/dj-oyu/moodface/pkg/types"
)

// LandmarkFrameScanner reads a recorded session: one JSON frame per line.
// Blank lines and lines starting with '#' are skipped. Frames without an
// explicit frame_number are numbered by their position in the stream.
type LandmarkFrameScanner struct {
	sc    *bufio.Scanner
	frame types.LandmarkFrame
	err   error
	line  int
	count uint64
}

func NewLandmarkFrameScanner(r io.Reader) *LandmarkFrameScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), MaxFrameBytes)
	return &LandmarkFrameScanner{sc: sc}
}

// Scan advances to the next frame. It returns false at EOF or on the first
// malformed line; Err distinguishes the two.
func (s *LandmarkFrameScanner) Scan() bool {
	if s.err != nil {
		return false
	}
	for s.sc.Scan() {
		s.line++
		raw := bytes.TrimSpace(s.sc.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}
		frame, numbered, err := decodeJSON(raw)
		if err != nil {
			s.err = fmt.Errorf("line %d: %w", s.line, err)
			return false
		}
		if !numbered {
			frame.FrameNumber = s.count
		}
		s.count++
		s.frame = frame
		return true
	}
	if err := s.sc.Err(); err != nil {
		s.err = fmt.Errorf("line %d: %w", s.line+1, err)
	}
	return false
}

// Frame returns the frame read by the last successful Scan.
func (s *LandmarkFrameScanner) Frame() types.LandmarkFrame { return s.frame }

func (s *LandmarkFrameScanner) Err() error { return s.err }

// Line is the 1-based input line of the current frame.
func (s *LandmarkFrameScanner) Line() int { return s.line }
