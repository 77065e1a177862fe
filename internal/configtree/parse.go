package configtree

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// TagSet is an allow-list of tags. A nil or empty set accepts every tag.
type TagSet map[string]struct{}

// NewTagSet builds a TagSet from tags.
func NewTagSet(tags ...string) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

func (s TagSet) allows(tag string) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[tag]
	return ok
}

// ParseFile parses the document stored at path. Errors carry path as their
// Source.
func ParseFile(path string, allowed TagSet) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Source: path, Kind: ErrOpen, Msg: err.Error()}
	}
	defer f.Close()
	return parseNamed(f, path, allowed)
}

// Parse reads a document from r. The root of a document is always a list.
func Parse(r io.Reader, allowed TagSet) (*List, error) {
	return parseNamed(r, "", allowed)
}

func parseNamed(r io.Reader, source string, allowed TagSet) (*List, error) {
	p := &parser{lines: newLineReader(r), allowed: allowed, source: source}
	root, err := p.container(0, KindList)
	if err != nil {
		return nil, err
	}
	if err := p.lines.err(); err != nil {
		return nil, fmt.Errorf("%s: read: %w", source, err)
	}
	return root.(*List), nil
}

type line struct {
	text string
	no   int
	tabs int
}

func (l line) blank() bool { return strings.TrimSpace(l.text) == "" }

// lineReader yields numbered lines and allows a single line to be pushed back
// so that the caller one level up can reprocess it.
type lineReader struct {
	sc      *bufio.Scanner
	n       int
	pending *line
}

func newLineReader(r io.Reader) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &lineReader{sc: sc}
}

func (r *lineReader) next() (line, bool) {
	if r.pending != nil {
		l := *r.pending
		r.pending = nil
		return l, true
	}
	if !r.sc.Scan() {
		return line{}, false
	}
	r.n++
	text := strings.TrimSuffix(r.sc.Text(), "\r")
	return line{text: text, no: r.n, tabs: leadingTabs(text)}, true
}

func (r *lineReader) unread(l line) { r.pending = &l }

func (r *lineReader) err() error { return r.sc.Err() }

func leadingTabs(s string) int {
	n := 0
	for n < len(s) && s[n] == '\t' {
		n++
	}
	return n
}

type parser struct {
	lines   *lineReader
	allowed TagSet
	source  string
}

func (p *parser) fail(l line, kind error, msg string) error {
	return &ParseError{Source: p.source, Line: l.no, Kind: kind, Msg: msg}
}

// container parses the children of a map or list whose entries sit at level
// tabs. It returns when input ends or a shallower line is seen.
func (p *parser) container(level int, kind Kind) (Item, error) {
	var (
		list *List
		m    *Map
	)
	if kind == KindMap {
		m = NewMap()
	} else {
		list = NewList()
	}
	add := func(tag string, it Item) {
		if m != nil {
			m.Set(tag, it)
			return
		}
		list.Append(tag, it)
	}

	for {
		l, ok := p.lines.next()
		if !ok {
			break
		}
		if l.blank() {
			continue
		}
		if l.tabs < level {
			p.lines.unread(l)
			break
		}
		if l.tabs > level {
			return nil, p.fail(l, ErrUnexpectedIndent, strings.TrimSpace(l.text))
		}

		pos, delim := findDelimiter(l.text)
		if pos < 0 {
			return nil, p.fail(l, ErrMissingDelimiter, strings.TrimSpace(l.text))
		}
		tag := strings.TrimSpace(l.text[:pos])
		if !p.allowed.allows(tag) {
			return nil, p.fail(l, ErrUnknownTag, tag)
		}

		var (
			child Item
			err   error
		)
		switch delim {
		case ':':
			child = p.text(level+1, strings.TrimSpace(l.text[pos+1:]))
		case '-':
			child, err = p.container(level+1, KindMap)
		case '+':
			child, err = p.container(level+1, KindList)
		}
		if err != nil {
			return nil, err
		}
		add(tag, child)
	}

	if m != nil {
		return m, nil
	}
	return list, nil
}

// text collects a text block. first is the value found after the delimiter;
// continuation lines are those with at least level tabs, or empty ones, and
// lose level leading tabs.
func (p *parser) text(level int, first string) Text {
	s := first
	for {
		l, ok := p.lines.next()
		if !ok {
			break
		}
		if l.tabs < level && !(level > 0 && l.text == "") {
			p.lines.unread(l)
			break
		}
		chunk := l.text
		if chunk != "" {
			chunk = chunk[level:]
		}
		if s != "" {
			s += "\n" + chunk
		} else {
			s = chunk
		}
	}
	return Text(s)
}

// findDelimiter returns the position of the leftmost of ':', '-' and '+'.
func findDelimiter(s string) (int, byte) {
	i := strings.IndexAny(s, ":-+")
	if i < 0 {
		return -1, 0
	}
	return i, s[i]
}
