package configtree

import (
	"fmt"
	"sort"
)

// Kind identifies the variant held by an Item.
type Kind int

const (
	KindText Kind = iota + 1
	KindMap
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Item is one node of a tree: Text, *Map or *List. The set is closed; switch
// on the concrete type to walk a tree.
type Item interface {
	Kind() Kind
	item()
}

// Text is a possibly multi-line string value.
type Text string

func (Text) Kind() Kind { return KindText }
func (Text) item()      {}

// Entry is one tagged child of a List.
type Entry struct {
	Tag  string
	Item Item
}

// List is an ordered sequence of tagged items. Tags may repeat.
type List struct {
	Entries []Entry
}

// NewList returns an empty list.
func NewList() *List { return &List{} }

func (*List) Kind() Kind { return KindList }
func (*List) item()      {}

// Append adds a tagged item at the end of the list.
func (l *List) Append(tag string, it Item) {
	l.Entries = append(l.Entries, Entry{Tag: tag, Item: it})
}

// Len returns the number of entries.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Entries)
}

// Map is a set of uniquely tagged items. Iteration order is by key.
type Map struct {
	items map[string]Item
}

// NewMap returns an empty map.
func NewMap() *Map { return &Map{items: make(map[string]Item)} }

func (*Map) Kind() Kind { return KindMap }
func (*Map) item()      {}

// Set stores it under key, replacing any previous value.
func (m *Map) Set(key string, it Item) {
	if m.items == nil {
		m.items = make(map[string]Item)
	}
	m.items[key] = it
}

// SetText is shorthand for Set(key, Text(value)).
func (m *Map) SetText(key, value string) { m.Set(key, Text(value)) }

// Get returns the item stored under key.
func (m *Map) Get(key string) (Item, bool) {
	if m == nil {
		return nil, false
	}
	it, ok := m.items[key]
	return it, ok
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.items)
}

// Keys returns the keys in sorted order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Text returns the text stored under key. A missing key yields "" and no
// error; a key holding a container yields ErrShape.
func (m *Map) Text(key string) (string, error) {
	it, ok := m.Get(key)
	if !ok {
		return "", nil
	}
	t, ok := it.(Text)
	if !ok {
		return "", fmt.Errorf("%w: %q must be text (%s:), got %s", ErrShape, key, key, it.Kind())
	}
	return string(t), nil
}

// List returns the list stored under key. ok is false when key is missing.
func (m *Map) List(key string) (l *List, ok bool, err error) {
	it, found := m.Get(key)
	if !found {
		return nil, false, nil
	}
	l, isList := it.(*List)
	if !isList {
		return nil, true, fmt.Errorf("%w: %q must be a list (%s +), got %s", ErrShape, key, key, it.Kind())
	}
	return l, true, nil
}

// Map returns the mapping stored under key. ok is false when key is missing.
func (m *Map) Map(key string) (sub *Map, ok bool, err error) {
	it, found := m.Get(key)
	if !found {
		return nil, false, nil
	}
	sub, isMap := it.(*Map)
	if !isMap {
		return nil, true, fmt.Errorf("%w: %q must be a map (%s -), got %s", ErrShape, key, key, it.Kind())
	}
	return sub, true, nil
}

// AsMap returns it as a mapping or ErrShape.
func AsMap(it Item) (*Map, error) {
	m, ok := it.(*Map)
	if !ok {
		return nil, fmt.Errorf("%w: expected map, got %s", ErrShape, kindOf(it))
	}
	return m, nil
}

// AsList returns it as a list or ErrShape.
func AsList(it Item) (*List, error) {
	l, ok := it.(*List)
	if !ok {
		return nil, fmt.Errorf("%w: expected list, got %s", ErrShape, kindOf(it))
	}
	return l, nil
}

func kindOf(it Item) string {
	if it == nil {
		return "nothing"
	}
	return it.Kind().String()
}
