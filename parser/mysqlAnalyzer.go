package parser

import (
	"fmt"
	"strings"

	tiParser "github.com/pingcap/tidb/parser"
	"github.com/pingcap/tidb/parser/ast"
	"github.com/pingcap/tidb/parser/mysql"
	_ "github.com/pingcap/tidb/types/parser_driver"
	log "github.com/sirupsen/logrus"
)

const (
	StmtType_Select         = "SELECT"
	StmtType_Insert         = "INSERT"
	StmtType_Replace        = "REPLACE"
	StmtType_Update         = "UPDATE"
	StmtType_Delete         = "DELETE"
	StmtType_Create_Table   = "CREATE TABLE"
	StmtType_Create_View    = "CREATE VIEW"
	StmtType_Drop_Table     = "DROP TABLE"
	StmtType_Drop_View      = "DROP VIEW"
	StmtType_Rename_Table   = "RENAME TABLE"
	StmtType_Alter_Table    = "ALTER TABLE"
	StmtType_Truncate_Table = "TRUNCATE TABLE"
	StmtType_Load_Data      = "LOAD DATA"
	StmtType_Other          = "OTHER"
)

type MySQLAnalyzer struct {
	sqlMode mysql.SQLMode
}

func NewMySQLAnalyzer() StatementAnalyzer {
	return &MySQLAnalyzer{}
}

// sqlMode为逗号分隔的MySQL sql_mode，如ANSI_QUOTES
func NewMySQLAnalyzerWithSQLMode(sqlMode string) (analyzer StatementAnalyzer, err error) {
	mode, err := mysql.GetSQLMode(sqlMode)
	if err != nil {
		err = fmt.Errorf("invalid sql mode,err=[%v],mode=[%v]", err.Error(), sqlMode)
		return
	}
	analyzer = &MySQLAnalyzer{sqlMode: mode}
	return
}

func (analyzer *MySQLAnalyzer) Analyze(sql string) (results []*LineageResult, err error) {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return
	}
	log.Debugf("original sql is [%v]", sql)

	// parser非并发安全，每次调用新建
	p := tiParser.New()
	p.SetSQLMode(analyzer.sqlMode)

	var stmts []ast.StmtNode
	stmts, _, err = p.Parse(sql, "", "")
	if err != nil {
		err = fmt.Errorf("parse sql failed,err=[%v],sql=[%v]", err.Error(), sql)
		return
	}

	for _, stmt := range stmts {
		results = append(results, analyzeStmt(stmt))
	}

	return
}

func analyzeStmt(stmt ast.StmtNode) (result *LineageResult) {
	switch node := stmt.(type) {
	case *ast.SelectStmt, *ast.SetOprStmt:
		result = newLineageResult(StmtType_Select)
		collectReads(result, node)
	case *ast.InsertStmt:
		result = newLineageResult(StmtType_Insert)
		if node.IsReplace {
			result.StmtType = StmtType_Replace
		}
		target := firstTableName(node.Table)
		addWrite(result, target)
		collectReads(result, node, target)
	case *ast.UpdateStmt:
		// 多表更新时取最左侧的表作为写入表
		result = newLineageResult(StmtType_Update)
		target := firstTableName(node.TableRefs)
		addWrite(result, target)
		collectReads(result, node, target)
	case *ast.DeleteStmt:
		result = newLineageResult(StmtType_Delete)
		var targets []*ast.TableName
		if node.IsMultiTable && node.Tables != nil {
			var sources []*ast.TableSource
			if node.TableRefs != nil {
				sources = flattenTableSources(node.TableRefs.TableRefs)
			}
			for _, table := range node.Tables.Tables {
				targets = append(targets, table)
				if matched := matchTableSource(sources, table); matched != nil {
					targets = append(targets, matched)
					addWrite(result, matched)
				} else {
					addWrite(result, table)
				}
			}
		} else {
			target := firstTableName(node.TableRefs)
			targets = append(targets, target)
			addWrite(result, target)
		}
		collectReads(result, node, targets...)
	case *ast.CreateTableStmt:
		result = newLineageResult(StmtType_Create_Table)
		addWrite(result, node.Table)
		if node.ReferTable != nil {
			result.Read.Add(tableRefOf(node.ReferTable))
		}
		if node.Select != nil {
			collectReads(result, node.Select)
		}
	case *ast.CreateViewStmt:
		result = newLineageResult(StmtType_Create_View)
		addWrite(result, node.ViewName)
		if node.Select != nil {
			collectReads(result, node.Select)
		}
	case *ast.DropTableStmt:
		result = newLineageResult(StmtType_Drop_Table)
		if node.IsView {
			result.StmtType = StmtType_Drop_View
		}
		for _, table := range node.Tables {
			result.Drop.Add(tableRefOf(table))
		}
	case *ast.RenameTableStmt:
		result = newLineageResult(StmtType_Rename_Table)
		for _, t2t := range node.TableToTables {
			result.Rename = append(result.Rename, TableRename{
				Old: tableRefOf(t2t.OldTable),
				New: tableRefOf(t2t.NewTable),
			})
		}
	case *ast.AlterTableStmt:
		result = newLineageResult(StmtType_Alter_Table)
		for _, spec := range node.Specs {
			if spec.Tp == ast.AlterTableRenameTable && spec.NewTable != nil {
				result.Rename = append(result.Rename, TableRename{
					Old: tableRefOf(node.Table),
					New: tableRefOf(spec.NewTable),
				})
			}
		}
	case *ast.TruncateTableStmt:
		result = newLineageResult(StmtType_Truncate_Table)
		addWrite(result, node.Table)
	case *ast.LoadDataStmt:
		result = newLineageResult(StmtType_Load_Data)
		addWrite(result, node.Table)
	default:
		result = newLineageResult(StmtType_Other)
		log.Debugf("skip unsupported statement type=%T", stmt)
	}

	return
}

func tableRefOf(table *ast.TableName) TableRef {
	return TableRef{Schema: table.Schema.L, Name: table.Name.L}
}

func addWrite(result *LineageResult, table *ast.TableName) {
	if table != nil {
		result.Write.Add(tableRefOf(table))
	}
}

// 遍历语法树收集读取的表和CTE，skip中的表为写入目标，不计入读取
func collectReads(result *LineageResult, node ast.Node, skip ...*ast.TableName) {
	collector := &tableCollector{result: result, skip: map[*ast.TableName]bool{}}
	for _, table := range skip {
		if table != nil {
			collector.skip[table] = true
		}
	}
	node.Accept(collector)
}

type tableCollector struct {
	result *LineageResult
	skip   map[*ast.TableName]bool
}

func (c *tableCollector) Enter(in ast.Node) (ast.Node, bool) {
	switch node := in.(type) {
	case *ast.TableName:
		if !c.skip[node] {
			c.result.Read.Add(tableRefOf(node))
		}
	case *ast.WithClause:
		for _, cte := range node.CTEs {
			c.result.Intermediate.Add(TableRef{Name: cte.Name.L})
		}
	}
	return in, false
}

func (c *tableCollector) Leave(in ast.Node) (ast.Node, bool) {
	return in, true
}

func firstTableName(refs *ast.TableRefsClause) *ast.TableName {
	if refs == nil || refs.TableRefs == nil {
		return nil
	}
	for _, source := range flattenTableSources(refs.TableRefs) {
		if table, ok := source.Source.(*ast.TableName); ok {
			return table
		}
	}
	return nil
}

// 按从左到右的顺序展开join中的表
func flattenTableSources(rsNode ast.ResultSetNode) (sources []*ast.TableSource) {
	if rsNode == nil {
		return
	}
	if join, ok := rsNode.(*ast.Join); ok {
		sources = append(sources, flattenTableSources(join.Left)...)
		sources = append(sources, flattenTableSources(join.Right)...)
		return
	}
	if tableSource, ok := rsNode.(*ast.TableSource); ok {
		sources = append(sources, tableSource)
	} else {
		log.Debugf("unknown ResultSetNode type=%T", rsNode)
	}
	return
}

// 多表删除的目标可能是别名，需找到对应的真实表
func matchTableSource(sources []*ast.TableSource, target *ast.TableName) *ast.TableName {
	for _, source := range sources {
		table, ok := source.Source.(*ast.TableName)
		if !ok {
			continue
		}
		if source.AsName.L != "" {
			if target.Schema.L == "" && source.AsName.L == target.Name.L {
				return table
			}
			continue
		}
		if table.Name.L == target.Name.L && (target.Schema.L == "" || target.Schema.L == table.Schema.L) {
			return table
		}
	}
	return nil
}
