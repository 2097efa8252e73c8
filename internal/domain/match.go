package domain

// Unknown 是“属性/节点不存在”的占位值。
//
// 注意与空串区分：空串表示该策略根本不关心这个字段。
const Unknown = "?"

// MatchRecord 是一次命中的 XML 元素。
//
// 约束：
// - 值类型、可比较；七个字段全部相等即视为同一条结果（去重依据）
// - 字段顺序即 JSON 输出顺序，不要随意调整
type MatchRecord struct {
	Tag       string `json:"tag"`
	Name      string `json:"name"`
	ID        string `json:"id"`
	ShortID   string `json:"short_id"`
	MediaID   string `json:"media_id"`
	Language  string `json:"language"`
	AudioFile string `json:"audio_file"`
}

// Less 给出稳定的展示顺序（按字段依次比较）。
func (m MatchRecord) Less(o MatchRecord) bool {
	a := [...]string{m.Tag, m.Name, m.ID, m.ShortID, m.MediaID, m.Language, m.AudioFile}
	b := [...]string{o.Tag, o.Name, o.ID, o.ShortID, o.MediaID, o.Language, o.AudioFile}
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Dedup 按全字段相等去重，保留首次出现的顺序。
func Dedup(in []MatchRecord) []MatchRecord {
	seen := make(map[MatchRecord]struct{}, len(in))
	out := make([]MatchRecord, 0, len(in))
	for _, m := range in {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
