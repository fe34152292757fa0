package parser

import (
	"slices"
	"strings"

	"golang.org/x/exp/maps"
)

// SQL解析器，按语句拆分并提取表级血缘
type StatementAnalyzer interface {
	// 返回每条语句的血缘结果
	Analyze(sql string) ([]*LineageResult, error)
}

// SQL中出现的原始表引用，MySQL语法下Database始终为空
type TableRef struct {
	Database string
	Schema   string
	Name     string
}

func (t TableRef) String() string {
	var parts []string
	if t.Database != "" {
		parts = append(parts, t.Database)
	}
	if t.Schema != "" {
		parts = append(parts, t.Schema)
	}
	return strings.Join(append(parts, t.Name), ".")
}

type TableRename struct {
	Old TableRef
	New TableRef
}

type TableRefSet map[TableRef]struct{}

func (s TableRefSet) Add(ref TableRef) {
	s[ref] = struct{}{}
}

func (s TableRefSet) Contains(ref TableRef) bool {
	_, ok := s[ref]
	return ok
}

// 返回s中不属于other的表
func (s TableRefSet) Minus(other TableRefSet) TableRefSet {
	diff := TableRefSet{}
	for ref := range s {
		if !other.Contains(ref) {
			diff.Add(ref)
		}
	}
	return diff
}

func (s TableRefSet) Sorted() []TableRef {
	refs := maps.Keys(s)
	slices.SortFunc(refs, func(a, b TableRef) int {
		return strings.Compare(a.String(), b.String())
	})
	return refs
}

// 单条语句的血缘结果
type LineageResult struct {
	// 语句类型，如INSERT、DROP TABLE
	StmtType     string
	Read         TableRefSet
	Write        TableRefSet
	Intermediate TableRefSet
	Drop         TableRefSet
	Rename       []TableRename
}

func newLineageResult(stmtType string) *LineageResult {
	return &LineageResult{
		StmtType:     stmtType,
		Read:         TableRefSet{},
		Write:        TableRefSet{},
		Intermediate: TableRefSet{},
		Drop:         TableRefSet{},
	}
}

// 读取的表中去掉CTE临时表
func (r *LineageResult) Sources() TableRefSet {
	return r.Read.Minus(r.Intermediate)
}

func (r *LineageResult) IsEmpty() bool {
	return len(r.Read) == 0 && len(r.Write) == 0 && len(r.Drop) == 0 && len(r.Rename) == 0
}
