package shdr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrBadTimestamp means the leading token looked like a timestamp but did not
// parse. The whole frame is dropped.
var ErrBadTimestamp = errors.New("bad timestamp")

// Timestamped is a tokenized frame with its resolved timestamp.
type Timestamped struct {
	Timestamp time.Time
	Duration  *float64
	Tokens    []string
}

const timestampLayout = "2006-01-02T15:04:05Z07:00"

// ExtractTimestamp inspects the first token. When it carries an ISO-8601 UTC
// instant, the token is consumed; a trailing @<seconds> suffix becomes the
// frame duration. Otherwise the stream is left untouched and the frame is
// stamped with the current wall clock. Timestamps are kept at microsecond
// resolution.
func ExtractTimestamp(tokens []string, now func() time.Time) (Timestamped, error) {
	if len(tokens) == 0 || !looksLikeTimestamp(tokens[0]) {
		return Timestamped{
			Timestamp: now().UTC().Truncate(time.Microsecond),
			Tokens:    tokens,
		}, nil
	}

	tok := tokens[0]
	var duration *float64
	if at := strings.IndexByte(tok, '@'); at >= 0 {
		d, err := strconv.ParseFloat(tok[at+1:], 64)
		if err != nil {
			return Timestamped{}, fmt.Errorf("%w: duration suffix in %q", ErrBadTimestamp, tokens[0])
		}
		duration = &d
		tok = tok[:at]
	}

	ts, err := time.Parse(timestampLayout, tok)
	if err != nil {
		return Timestamped{}, fmt.Errorf("%w: %q", ErrBadTimestamp, tokens[0])
	}

	return Timestamped{
		Timestamp: ts.UTC().Truncate(time.Microsecond),
		Duration:  duration,
		Tokens:    tokens[1:],
	}, nil
}

// looksLikeTimestamp is the cheap gate deciding whether the first token is a
// timestamp claim at all. Tokens that fail it fall back to wall-clock time;
// tokens that pass it but do not parse are an error.
func looksLikeTimestamp(s string) bool {
	if len(s) < 10 {
		return false
	}
	for i := 0; i < 4; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s[4] == '-'
}
