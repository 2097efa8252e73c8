package match

import (
	"strings"

	"github.com/John-Robertt/findid/internal/domain"
	"github.com/John-Robertt/findid/internal/xmldoc"
)

// Strategy 把“按哪种标识查找”限制在 match 包内部；编排层只依赖统一接口。
//
// 约束：
// - Scan 必须是纯函数：相同输入 => 相同输出，不持有状态，可被多个 goroutine 同时调用
// - query 由调用方预先转小写；匹配是子串包含，不锚定首尾
// - 与本策略无关的字段保持空串（区别于属性缺失时的 "?"）
type Strategy interface {
	Mode() domain.Mode
	Scan(query string, doc *xmldoc.Document) Result
}

// Result 是单个策略在单个文件上的产出。
type Result struct {
	Matches   []domain.MatchRecord
	Anomalies []Anomaly
}

// Anomaly 描述一个因文件结构不符合预期而被跳过的节点。
// 它不是错误：同一文件里的其它结果照常输出。
type Anomaly struct {
	Tag    string
	Value  string
	Reason string
}

func contains(value, query string) bool {
	return strings.Contains(strings.ToLower(value), query)
}
