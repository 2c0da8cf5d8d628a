package transfer

import (
	"strings"

	"github.com/raoulx24/rsync-backup/internal/checksum"
)

// Event is a regular file the transfer created or updated.
type Event struct {
	Itemize string
	Sum     string
	Path    string
}

// ParseLine extracts an Event from one line of itemized rsync output.
// Only lines for received regular files (">f...") qualify.
func ParseLine(line string) (Event, bool) {
	if !strings.HasPrefix(line, ">f") {
		return Event{}, false
	}

	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 || !checksum.IsSum(parts[1]) || parts[2] == "" {
		return Event{}, false
	}

	return Event{Itemize: parts[0], Sum: parts[1], Path: unescapeName(parts[2])}, true
}

// unescapeName decodes the \#ooo octal escapes rsync writes for bytes it
// will not print, such as non-ASCII names under the C locale.
func unescapeName(s string) string {
	if !strings.Contains(s, `\#`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+4 < len(s) && s[i+1] == '#' && isOctal(s[i+2]) && isOctal(s[i+3]) && isOctal(s[i+4]) {
			b.WriteByte((s[i+2]-'0')<<6 | (s[i+3]-'0')<<3 | (s[i+4] - '0'))
			i += 4
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isOctal(c byte) bool {
	return c >= '0' && c <= '7'
}

// Entry converts the event to a checksum entry.
func (e Event) Entry() checksum.Entry {
	return checksum.Entry{Path: e.Path, Sum: e.Sum}
}
