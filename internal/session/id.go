package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the prefix of every session id. Draining parses it back to
// decide whether a leftover session directory is stale.
const DateLayout = "2006-01-02"

// NewID builds a session id of the form
// "YYYY-MM-DD-HHMMSS.<random>.<user>@<host>".
func NewID(now time.Time, user, host string) string {
	rnd := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s.%s.%s@%s", now.Format(DateLayout+"-150405"), rnd, user, host)
}

// IDDate extracts the date embedded in a session id or directory name.
func IDDate(name string, loc *time.Location) (time.Time, bool) {
	if len(name) < len(DateLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, name[:len(DateLayout)], loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
