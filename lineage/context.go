package lineage

import (
	"slices"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/exp/maps"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

// 查询的上下文信息，如执行用户、执行时间
type QueryContext interface {
	ToDict() bson.M
	ToHTML() string
}

type BasicQueryContext struct {
	QueryID    string
	User       string
	StartTime  time.Time
	Attributes map[string]string
}

func (c *BasicQueryContext) ToDict() bson.M {
	dict := bson.M{
		"query_id": c.QueryID,
		"user":     c.User,
	}
	if !c.StartTime.IsZero() {
		dict["start_time"] = c.StartTime.UTC().Format(time.RFC3339)
	}
	if len(c.Attributes) > 0 {
		attributes := bson.M{}
		for k, v := range c.Attributes {
			attributes[k] = v
		}
		dict["attributes"] = attributes
	}
	return dict
}

func (c *BasicQueryContext) ToHTML() string {
	rows := []g.Node{
		contextRow("Query ID", c.QueryID),
		contextRow("User", c.User),
	}
	if !c.StartTime.IsZero() {
		rows = append(rows, contextRow("Start Time", c.StartTime.UTC().Format(time.RFC3339)))
	}
	keys := maps.Keys(c.Attributes)
	slices.Sort(keys)
	for _, key := range keys {
		rows = append(rows, contextRow(key, c.Attributes[key]))
	}

	var sb strings.Builder
	_ = h.Table(h.Class("query-context"), h.TBody(g.Group(rows))).Render(&sb)
	return sb.String()
}

func contextRow(label string, value string) g.Node {
	return h.Tr(h.Th(g.Text(label)), h.Td(g.Text(value)))
}
