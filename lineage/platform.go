package lineage

import (
	"fmt"
	"strings"
)

const (
	Platform_Type_Default   = ""
	Platform_Type_MySQL     = "mysql"
	Platform_Type_Snowflake = "snowflake"
)

// 不同SQL方言的扩展点，在通用解析之前执行
type Platform interface {
	Type() string
	// 返回非空结果时跳过通用解析
	ParsePlatformSpecificQueries(resolver TableResolver, rawQueryText string) (sources TableSet, targets TableSet)
}

type DefaultPlatform struct{}

func (DefaultPlatform) Type() string {
	return Platform_Type_Default
}

func (DefaultPlatform) ParsePlatformSpecificQueries(resolver TableResolver, rawQueryText string) (sources TableSet, targets TableSet) {
	return TableSet{}, TableSet{}
}

// MySQL语法完全由通用解析处理
type MySQLPlatform struct {
	DefaultPlatform
}

func (MySQLPlatform) Type() string {
	return Platform_Type_MySQL
}

func PlatformByType(platformType string) (platform Platform, err error) {
	switch strings.ToLower(strings.TrimSpace(platformType)) {
	case Platform_Type_Default, "default":
		platform = DefaultPlatform{}
	case Platform_Type_MySQL:
		platform = MySQLPlatform{}
	case Platform_Type_Snowflake:
		platform = SnowflakePlatform{}
	default:
		err = fmt.Errorf("unknown platform type=%v,valid types=[default,mysql,snowflake]", platformType)
	}
	return
}
