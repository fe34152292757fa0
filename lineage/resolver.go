package lineage

import (
	"strings"

	"github.com/tsfans/sql-lineage/parser"
)

// 将SQL中的表引用转为规范的全限定表名
type TableResolver interface {
	NameQualification(table parser.TableRef) string
}

// 使用profile中的库名和schema补全未限定的表名
type ProfileTableResolver struct {
	DatabaseName   string
	SchemaName     string
	FullTableNames bool
}

func NewProfileTableResolver(databaseName string, schemaName string, fullTableNames bool) *ProfileTableResolver {
	return &ProfileTableResolver{
		DatabaseName:   databaseName,
		SchemaName:     schemaName,
		FullTableNames: fullTableNames,
	}
}

// FullTableNames为true时返回database.schema.table，否则返回schema.table
func (r *ProfileTableResolver) NameQualification(table parser.TableRef) string {
	schema := table.Schema
	if schema == "" {
		schema = r.SchemaName
	}
	database := table.Database
	if database == "" {
		database = r.DatabaseName
	}

	var parts []string
	if r.FullTableNames && database != "" {
		parts = append(parts, database)
	}
	if schema != "" {
		parts = append(parts, schema)
	}
	parts = append(parts, table.Name)

	return strings.ToLower(strings.Join(parts, "."))
}
