package lineage

import (
	log "github.com/sirupsen/logrus"
	"github.com/tsfans/sql-lineage/parser"
	"go.mongodb.org/mongo-driver/bson"
)

// 单条原始SQL及其解析出的表级血缘
type Query struct {
	rawQueryText        string
	queryContext        QueryContext
	profileDatabaseName string
	profileSchemaName   string
	platform            Platform
	analyzer            parser.StatementAnalyzer
	resolver            TableResolver

	DroppedTables TableSet
	RenamedTables RenameSet
	SourceTables  TableSet
	TargetTables  TableSet
}

type QueryOption func(*Query)

// platform为nil时保持默认平台
func WithPlatform(platform Platform) QueryOption {
	return func(q *Query) {
		if platform != nil {
			q.platform = platform
		}
	}
}

func WithAnalyzer(analyzer parser.StatementAnalyzer) QueryOption {
	return func(q *Query) {
		if analyzer != nil {
			q.analyzer = analyzer
		}
	}
}

// 指定resolver后Parse的fullTableNames参数不再生效
func WithTableResolver(resolver TableResolver) QueryOption {
	return func(q *Query) {
		q.resolver = resolver
	}
}

func NewQuery(rawQueryText string, queryContext QueryContext, profileDatabaseName string, profileSchemaName string, opts ...QueryOption) *Query {
	q := &Query{
		rawQueryText:        rawQueryText,
		queryContext:        queryContext,
		profileDatabaseName: profileDatabaseName,
		profileSchemaName:   profileSchemaName,
		platform:            DefaultPlatform{},
		analyzer:            parser.NewMySQLAnalyzer(),
		DroppedTables:       TableSet{},
		RenamedTables:       RenameSet{},
		SourceTables:        TableSet{},
		TargetTables:        TableSet{},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Query) RawQueryText() string {
	return q.rawQueryText
}

func (q *Query) PlatformType() string {
	return q.platform.Type()
}

// 解析SQL并填充四个表集合，返回是否解析到任何血缘
func (q *Query) Parse(fullTableNames bool) (found bool, err error) {
	resolver := q.resolver
	if resolver == nil {
		resolver = NewProfileTableResolver(q.profileDatabaseName, q.profileSchemaName, fullTableNames)
	}

	// 解析失败时不保留上一次的结果
	q.SourceTables = TableSet{}
	q.TargetTables = TableSet{}
	q.RenamedTables = RenameSet{}
	q.DroppedTables = TableSet{}

	sources, targets, renamed, dropped, err := ParseQueryText(q.platform, q.analyzer, resolver, q.rawQueryText)
	if err != nil {
		return
	}

	q.SourceTables = sources
	q.TargetTables = targets
	q.RenamedTables = renamed
	q.DroppedTables = dropped

	found = len(sources) > 0 || len(targets) > 0 || len(renamed) > 0 || len(dropped) > 0
	return
}

// 先尝试平台特定解析，无结果时逐条分析语句。
// 多条语句时源表和目标表只取第一条非空的结果，后续冲突只记录日志
func ParseQueryText(platform Platform, analyzer parser.StatementAnalyzer, resolver TableResolver, rawQueryText string) (sources TableSet, targets TableSet, renamed RenameSet, dropped TableSet, err error) {
	renamed = RenameSet{}
	dropped = TableSet{}

	sources, targets = platform.ParsePlatformSpecificQueries(resolver, rawQueryText)
	if sources == nil {
		sources = TableSet{}
	}
	if targets == nil {
		targets = TableSet{}
	}
	if len(sources) > 0 || len(targets) > 0 {
		return
	}

	var results []*parser.LineageResult
	results, err = analyzer.Analyze(rawQueryText)
	if err != nil {
		return
	}

	for _, result := range results {
		for table := range result.Drop {
			dropped.Add(resolver.NameQualification(table))
		}

		for _, rename := range result.Rename {
			renamed.Add(RenamePair{
				Old: resolver.NameQualification(rename.Old),
				New: resolver.NameQualification(rename.New),
			})
		}

		// CTE在Read中也会出现，需要去掉
		if len(sources) == 0 {
			sources = resolveTables(resolver, result.Sources())
		} else if len(result.Read) > 0 {
			log.Debugf("unexpected case when source tables is already filled,sql=[%v]", rawQueryText)
		}

		if len(targets) == 0 {
			targets = resolveTables(resolver, result.Write)
		} else if len(result.Write) > 0 {
			log.Debugf("unexpected case when target tables is already filled,sql=[%v]", rawQueryText)
		}
	}

	return
}

func resolveTables(resolver TableResolver, tables parser.TableRefSet) TableSet {
	resolved := TableSet{}
	for table := range tables {
		resolved.Add(resolver.NameQualification(table))
	}
	return resolved
}

// 只包含静态字段，不包含解析出的表集合
func (q *Query) ToDict() bson.M {
	var queryContext bson.M
	if q.queryContext != nil {
		queryContext = q.queryContext.ToDict()
	}
	var platformType any
	if t := q.platform.Type(); t != Platform_Type_Default {
		platformType = t
	}
	return bson.M{
		"raw_query_text":        q.rawQueryText,
		"query_context":         queryContext,
		"profile_database_name": q.profileDatabaseName,
		"profile_schema_name":   q.profileSchemaName,
		"platform_type":         platformType,
	}
}

// ToDict加上解析出的表集合，表名已排序
func (q *Query) LineageDict() bson.M {
	dict := q.ToDict()
	dict["source_tables"] = q.SourceTables.Sorted()
	dict["target_tables"] = q.TargetTables.Sorted()
	dict["dropped_tables"] = q.DroppedTables.Sorted()

	renamed := bson.A{}
	for _, pair := range q.RenamedTables.Sorted() {
		renamed = append(renamed, bson.M{"old": pair.Old, "new": pair.New})
	}
	dict["renamed_tables"] = renamed
	return dict
}

// 实现bson.Marshaler，存储的文档与LineageDict一致
func (q *Query) MarshalBSON() ([]byte, error) {
	return bson.Marshal(q.LineageDict())
}

func (q *Query) ContextAsHTML() string {
	if q.queryContext == nil {
		return ""
	}
	return q.queryContext.ToHTML()
}
