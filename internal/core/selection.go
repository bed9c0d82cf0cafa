package core

import "strings"

// Selection is an ordered set of category names. The order is the one the
// caller chose and is used for cards and pivot columns.
type Selection struct {
	names []string
	index map[string]struct{}
}

// NewSelection trims and de-duplicates names, keeping the first occurrence.
func NewSelection(names ...string) Selection {
	s := Selection{index: make(map[string]struct{}, len(names))}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := s.index[n]; ok {
			continue
		}
		s.index[n] = struct{}{}
		s.names = append(s.names, n)
	}
	return s
}

func (s Selection) Contains(category string) bool {
	_, ok := s.index[category]
	return ok
}

func (s Selection) Len() int {
	return len(s.names)
}

func (s Selection) IsEmpty() bool {
	return len(s.names) == 0
}

// Names returns a copy of the selected categories in selection order.
func (s Selection) Names() []string {
	return append([]string(nil), s.names...)
}
