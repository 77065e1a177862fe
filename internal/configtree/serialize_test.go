package configtree

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestSerialize_Layout(t *testing.T) {
	host := NewMap()
	host.SetText("user", "ops")
	host.SetText("host", "h1")
	hosts := NewList()
	hosts.Append("host", host)

	tree := NewList()
	tree.Append("hosts", hosts)
	tree.Append("note", Text("two\nlines"))
	tree.Append("empty", Text(""))

	want := "hosts +\n" +
		"\thost -\n" +
		"\t\thost: h1\n" +
		"\t\tuser: ops\n" +
		"note:\n" +
		"\ttwo\n" +
		"\tlines\n" +
		"empty:\n"
	require.Equal(t, want, String(tree))
}

func TestSerialize_RoundTrip(t *testing.T) {
	docs := map[string]string{
		"flat":     "a: 1\nb: two words\n",
		"multi":    "a:\n\tline1\n\tline2\nb: x\n",
		"trailing": "a: first\n\tsecond\n\nb: x\n",
		"padded":   "a:\n\t  leading spaces\nb:\n\ttrailing \n",
		"nested": "hosts +\n\thost -\n\t\thost: h\n\t\tuser: u\n" +
			"scripts +\n\tmonitor -\n\t\tthreads: 2\n\t\tscripts_lock +\n\t\t\tscript -\n\t\t\t\tcommand:\n\t\t\t\t\techo a\n\t\t\t\t\t\techo b\n" +
			"\t\tscripts +\n\t\t\tscript -\n\t\t\t\tcommand: true\n",
		"repeat": "script: a\nscript: b\nscript: a\n",
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			first := mustParse(t, doc, nil)
			second := mustParse(t, String(first), nil)
			if diff := cmp.Diff(first, second, treeOpts); diff != "" {
				t.Fatalf("round trip mismatch (-first +second):\n%s\nserialized:\n%s", diff, String(first))
			}
		})
	}
}

func TestSerialize_TrailingNewlinePreserved(t *testing.T) {
	tree := NewList()
	tree.Append("a", Text("x\n\n"))
	out := String(tree)
	require.True(t, strings.HasPrefix(out, "a:\n\tx\n"))
	back := mustParse(t, out, nil)
	require.Equal(t, Text("x\n\n"), back.Entries[0].Item)
}
