package lineage

import (
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tsfans/sql-lineage/parser"
)

var (
	// COPY INTO <table|@stage|'location'> [(cols)] FROM <@stage|table|'location'|(SELECT ...)>
	snowflakeCopyInto = regexp.MustCompile(`(?ims)^\s*COPY\s+INTO\s+('[^']*'|@?[\w$."/]+)(?:\s*\([^)]*\))?\s+FROM\s+(\(|'[^']*'|@?[\w$."/]+)`)
	// CREATE [OR REPLACE] [TRANSIENT|TEMPORARY] TABLE [IF NOT EXISTS] <table> CLONE <table>
	snowflakeClone = regexp.MustCompile(`(?ims)^\s*CREATE\s+(?:OR\s+REPLACE\s+)?(?:(?:TRANSIENT|TEMPORARY)\s+)?TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?([\w$."]+)\s+CLONE\s+([\w$."]+)`)
)

// 处理MySQL语法无法解析的Snowflake语句
type SnowflakePlatform struct{}

func (SnowflakePlatform) Type() string {
	return Platform_Type_Snowflake
}

func (SnowflakePlatform) ParsePlatformSpecificQueries(resolver TableResolver, rawQueryText string) (sources TableSet, targets TableSet) {
	sources, targets = TableSet{}, TableSet{}

	for _, match := range snowflakeCopyInto.FindAllStringSubmatch(rawQueryText, -1) {
		into, from := match[1], match[2]
		// stage、外部路径和转换查询都不是表
		if !isSnowflakeStage(into) {
			targets.Add(resolver.NameQualification(parseSnowflakeTable(into)))
		}
		if !isSnowflakeStage(from) {
			sources.Add(resolver.NameQualification(parseSnowflakeTable(from)))
		}
	}

	for _, match := range snowflakeClone.FindAllStringSubmatch(rawQueryText, -1) {
		targets.Add(resolver.NameQualification(parseSnowflakeTable(match[1])))
		sources.Add(resolver.NameQualification(parseSnowflakeTable(match[2])))
	}

	if len(sources) > 0 || len(targets) > 0 {
		log.Debugf("snowflake specific query matched,sources=%v,targets=%v", sources.Sorted(), targets.Sorted())
	}
	return
}

func isSnowflakeStage(name string) bool {
	return strings.HasPrefix(name, "@") || strings.HasPrefix(name, "'") || strings.HasPrefix(name, "(") || strings.Contains(name, "/")
}

// 解析db.schema.table形式的表名，引号内的标识符保留原样
func parseSnowflakeTable(name string) (table parser.TableRef) {
	var parts []string
	for _, part := range strings.Split(name, ".") {
		if strings.HasPrefix(part, `"`) && strings.HasSuffix(part, `"`) && len(part) >= 2 {
			parts = append(parts, part[1:len(part)-1])
		} else {
			parts = append(parts, strings.ToLower(part))
		}
	}

	switch len(parts) {
	case 1:
		table.Name = parts[0]
	case 2:
		table.Schema, table.Name = parts[0], parts[1]
	default:
		n := len(parts)
		table.Database, table.Schema, table.Name = parts[n-3], parts[n-2], parts[n-1]
	}
	return
}
