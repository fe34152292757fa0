package lineage

import (
	"slices"
	"strings"

	"golang.org/x/exp/maps"
)

// 解析后的全限定表名集合
type TableSet map[string]struct{}

func NewTableSet(names ...string) TableSet {
	set := TableSet{}
	for _, name := range names {
		set.Add(name)
	}
	return set
}

func (s TableSet) Add(name string) {
	s[name] = struct{}{}
}

func (s TableSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

func (s TableSet) Sorted() []string {
	names := maps.Keys(s)
	slices.Sort(names)
	return names
}

type RenamePair struct {
	Old string
	New string
}

type RenameSet map[RenamePair]struct{}

func (s RenameSet) Add(pair RenamePair) {
	s[pair] = struct{}{}
}

func (s RenameSet) Contains(pair RenamePair) bool {
	_, ok := s[pair]
	return ok
}

func (s RenameSet) Sorted() []RenamePair {
	pairs := maps.Keys(s)
	slices.SortFunc(pairs, func(a, b RenamePair) int {
		if c := strings.Compare(a.Old, b.Old); c != 0 {
			return c
		}
		return strings.Compare(a.New, b.New)
	})
	return pairs
}
