package configtree

import (
	"bufio"
	"io"
	"strings"
)

// Serialize writes tree in the notation accepted by Parse. Map entries are
// written in key order.
func Serialize(w io.Writer, tree *List) error {
	bw := bufio.NewWriter(w)
	writeEntries(bw, 0, tree.Entries)
	return bw.Flush()
}

// String renders tree with Serialize.
func String(tree *List) string {
	var sb strings.Builder
	_ = Serialize(&sb, tree)
	return sb.String()
}

func writeEntries(w *bufio.Writer, level int, entries []Entry) {
	for _, e := range entries {
		writeItem(w, level, e.Tag, e.Item)
	}
}

func writeItem(w *bufio.Writer, level int, tag string, it Item) {
	indent := strings.Repeat("\t", level)
	switch v := it.(type) {
	case Text:
		writeText(w, indent, tag, string(v))
	case *List:
		w.WriteString(indent + tag + " +\n")
		if v != nil {
			writeEntries(w, level+1, v.Entries)
		}
	case *Map:
		w.WriteString(indent + tag + " -\n")
		for _, k := range v.Keys() {
			child, _ := v.Get(k)
			writeItem(w, level+1, k, child)
		}
	}
}

func writeText(w *bufio.Writer, indent, tag, v string) {
	switch {
	case v == "":
		w.WriteString(indent + tag + ":\n")
		return
	case !strings.Contains(v, "\n") && strings.TrimSpace(v) == v:
		w.WriteString(indent + tag + ": " + v + "\n")
		return
	}
	w.WriteString(indent + tag + ":\n")
	inner := indent + "\t"
	for _, ln := range strings.Split(strings.TrimSuffix(v, "\n"), "\n") {
		w.WriteString(inner + ln + "\n")
	}
	if strings.HasSuffix(v, "\n") {
		w.WriteString(inner + "\n")
	}
}
