package remote

import "strings"

// LogSentinel marks a captured log line in remote output.
const LogSentinel = "##log:"

// LogScanner is an io.Writer that collects the text following LogSentinel up
// to and including the end of line. Matching is a byte-wise state machine so
// a sentinel split across writes is still found; any mismatch resets it.
type LogScanner struct {
	state int
	log   strings.Builder
}

func (s *LogScanner) Write(p []byte) (int, error) {
	for _, c := range p {
		if s.state == len(LogSentinel) {
			s.log.WriteByte(c)
			if c == '\n' {
				s.state = 0
			}
			continue
		}
		if c == LogSentinel[s.state] {
			s.state++
		} else {
			s.state = 0
		}
	}
	return len(p), nil
}

// Log returns everything captured so far.
func (s *LogScanner) Log() string { return s.log.String() }
