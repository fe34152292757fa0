package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	INSERT_SELECT = "INSERT INTO target SELECT * FROM source"
	SELECT_CTE    = "WITH recent AS (SELECT id, amount FROM sales.orders WHERE created_at > '2023-11-11') " +
		"SELECT r.id, c.name FROM recent r JOIN sales.customers c ON r.id = c.order_id"
	SELECT_SUBQUERY = "select s1.id,name from (select id,name from student) s1 " +
		"where s1.id in (select stuId from homework)"
	UPDATE_JOIN  = "UPDATE tab1 a INNER JOIN tab2 b ON a.id = b.id SET a.col1 = b.col1"
	DELETE_SUB   = "DELETE FROM tab1 WHERE id IN (SELECT id FROM tab2)"
	DELETE_MULTI = "DELETE a FROM tab1 a JOIN tab2 b ON a.id = b.id"
	CREATE_AS    = "CREATE TABLE db.tab1 AS SELECT * FROM db.tab2"
	CREATE_LIKE  = "CREATE TABLE tab1 LIKE tab2"
	CREATE_VIEW  = "CREATE VIEW v1 AS SELECT a.id FROM tab1 a UNION SELECT b.id FROM tab2 b"
	DROP         = "DROP TABLE IF EXISTS x, db.y"
	DROP_VIEW    = "DROP VIEW v1"
	RENAME       = "RENAME TABLE a TO b, db.c TO db.d"
	ALTER_RENAME = "ALTER TABLE a RENAME TO b"
	TRUNCATE     = "TRUNCATE TABLE tab1"
	LOAD         = "LOAD DATA INFILE '/tmp/data.csv' INTO TABLE tab1"
	MULTI_STMT   = "-- nightly refresh\nDROP TABLE tmp; /* empty */ ;\nINSERT INTO tmp SELECT * FROM src;"
	SELF_INSERT  = "INSERT INTO tab1 SELECT * FROM tab1"
	UPPER_CASE   = "INSERT INTO DB.Target SELECT * FROM Source"
)

func analyzeOne(t *testing.T, sql string) *LineageResult {
	t.Helper()
	results, err := NewMySQLAnalyzer().Analyze(sql)
	require.NoError(t, err)
	require.Len(t, results, 1)
	return results[0]
}

func ref(name string) TableRef {
	return TableRef{Name: name}
}

func TestAnalyzeReadWrite(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		stmtType string
		read     []TableRef
		write    []TableRef
	}{
		{"insert select", INSERT_SELECT, StmtType_Insert, []TableRef{ref("source")}, []TableRef{ref("target")}},
		{"select subquery", SELECT_SUBQUERY, StmtType_Select, []TableRef{ref("homework"), ref("student")}, []TableRef{}},
		{"update join", UPDATE_JOIN, StmtType_Update, []TableRef{ref("tab2")}, []TableRef{ref("tab1")}},
		{"delete subquery", DELETE_SUB, StmtType_Delete, []TableRef{ref("tab2")}, []TableRef{ref("tab1")}},
		{"delete multi table", DELETE_MULTI, StmtType_Delete, []TableRef{ref("tab2")}, []TableRef{ref("tab1")}},
		{"create as select", CREATE_AS, StmtType_Create_Table, []TableRef{{Schema: "db", Name: "tab2"}}, []TableRef{{Schema: "db", Name: "tab1"}}},
		{"create like", CREATE_LIKE, StmtType_Create_Table, []TableRef{ref("tab2")}, []TableRef{ref("tab1")}},
		{"create view", CREATE_VIEW, StmtType_Create_View, []TableRef{ref("tab1"), ref("tab2")}, []TableRef{ref("v1")}},
		{"truncate", TRUNCATE, StmtType_Truncate_Table, []TableRef{}, []TableRef{ref("tab1")}},
		{"load data", LOAD, StmtType_Load_Data, []TableRef{}, []TableRef{ref("tab1")}},
		{"self insert", SELF_INSERT, StmtType_Insert, []TableRef{ref("tab1")}, []TableRef{ref("tab1")}},
		{"identifiers lower cased", UPPER_CASE, StmtType_Insert, []TableRef{ref("source")}, []TableRef{{Schema: "db", Name: "target"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := analyzeOne(t, tt.sql)
			assert.Equal(t, tt.stmtType, result.StmtType)
			assert.Equal(t, tt.read, result.Sources().Sorted())
			assert.Equal(t, tt.write, result.Write.Sorted())
		})
	}
}

func TestAnalyzeCTEIsIntermediate(t *testing.T) {
	result := analyzeOne(t, SELECT_CTE)

	assert.True(t, result.Read.Contains(ref("recent")))
	assert.True(t, result.Intermediate.Contains(ref("recent")))
	assert.Equal(t, []TableRef{
		{Schema: "sales", Name: "customers"},
		{Schema: "sales", Name: "orders"},
	}, result.Sources().Sorted())
	assert.Empty(t, result.Write)
}

func TestAnalyzeDrop(t *testing.T) {
	result := analyzeOne(t, DROP)
	assert.Equal(t, StmtType_Drop_Table, result.StmtType)
	assert.Equal(t, []TableRef{{Schema: "db", Name: "y"}, ref("x")}, result.Drop.Sorted())
	assert.Empty(t, result.Read)

	result = analyzeOne(t, DROP_VIEW)
	assert.Equal(t, StmtType_Drop_View, result.StmtType)
	assert.True(t, result.Drop.Contains(ref("v1")))
}

func TestAnalyzeRename(t *testing.T) {
	result := analyzeOne(t, RENAME)
	assert.Equal(t, []TableRename{
		{Old: ref("a"), New: ref("b")},
		{Old: TableRef{Schema: "db", Name: "c"}, New: TableRef{Schema: "db", Name: "d"}},
	}, result.Rename)

	result = analyzeOne(t, ALTER_RENAME)
	assert.Equal(t, []TableRename{{Old: ref("a"), New: ref("b")}}, result.Rename)
}

func TestAnalyzeMultiStatement(t *testing.T) {
	results, err := NewMySQLAnalyzer().Analyze(MULTI_STMT)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Drop.Contains(ref("tmp")))
	assert.Equal(t, []TableRef{ref("src")}, results[1].Sources().Sorted())
	assert.Equal(t, []TableRef{ref("tmp")}, results[1].Write.Sorted())
}

func TestAnalyzeEmpty(t *testing.T) {
	results, err := NewMySQLAnalyzer().Analyze("  \n\t ")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAnalyzeInvalidSQL(t *testing.T) {
	_, err := NewMySQLAnalyzer().Analyze("SELEC * FORM nowhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse sql failed")
}

func TestAnalyzeUnsupportedStatement(t *testing.T) {
	result := analyzeOne(t, "SET @a = 1")
	assert.Equal(t, StmtType_Other, result.StmtType)
	assert.True(t, result.IsEmpty())
}

func TestAnalyzerWithSQLMode(t *testing.T) {
	analyzer, err := NewMySQLAnalyzerWithSQLMode("ANSI_QUOTES")
	require.NoError(t, err)

	results, err := analyzer.Analyze(`INSERT INTO "Analytics"."events" SELECT * FROM "raw"."events"`)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []TableRef{{Schema: "raw", Name: "events"}}, results[0].Sources().Sorted())
	assert.Equal(t, []TableRef{{Schema: "analytics", Name: "events"}}, results[0].Write.Sorted())

	_, err = NewMySQLAnalyzerWithSQLMode("NOT_A_MODE")
	assert.Error(t, err)
}

func TestTableRefString(t *testing.T) {
	assert.Equal(t, "db.t", TableRef{Schema: "db", Name: "t"}.String())
	assert.Equal(t, "t", ref("t").String())
}
