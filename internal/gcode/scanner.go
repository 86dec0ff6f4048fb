package gcode

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Scanner yields source lines with their terminators intact.
type Scanner struct {
	r *bufio.Reader
}

// NewScanner wraps r for line-by-line reading.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

// ReadUntil consumes lines until one contains marker. The marker line itself is
// consumed but not returned. When input ends first, every remaining line is
// returned and found is false.
func (s *Scanner) ReadUntil(marker string) (lines []string, found bool, err error) {
	for {
		line, err := s.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return lines, false, nil
			}
			return lines, false, err
		}
		if strings.Contains(line, marker) {
			return lines, true, nil
		}
		lines = append(lines, line)
	}
}

// ReadRest returns every line left in the source.
func (s *Scanner) ReadRest() ([]string, error) {
	var lines []string
	for {
		line, err := s.next()
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
}

func (s *Scanner) next() (string, error) {
	line, err := s.r.ReadString('\n')
	if err != nil {
		// A final line without terminator is still a line.
		if errors.Is(err, io.EOF) && line != "" {
			return line, nil
		}
		return "", err
	}
	return line, nil
}
