// Package configtree implements the tab-indented tree notation used for
// scripts files.
//
// Each line of a document is "tag<delim>" at some tab depth where the
// delimiter selects the node kind:
//
//	name: value     text (continues on deeper-indented lines)
//	name -          mapping, children one tab deeper
//	name +          ordered list, children one tab deeper
//
// Parse turns text into a *List; Serialize writes a *List back in the same
// notation so that Parse(Serialize(t)) is structurally equal to t.
package configtree
