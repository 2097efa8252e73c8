package domain

import (
	"fmt"
	"strings"
)

// Mode 是一种匹配策略（按哪个标识查找）。
type Mode string

const (
	ModeGUID    Mode = "guid"
	ModeShortID Mode = "short_id"
	ModeMediaID Mode = "media_id"
)

// AllModes 是固定的执行顺序：guid -> short_id -> media_id。
var AllModes = []Mode{ModeGUID, ModeShortID, ModeMediaID}

// ParseMode 解析 CLI/配置里出现的 mode 写法（大小写不敏感，允许 shortid/mediaid/id 等别名）。
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "guid", "id":
		return ModeGUID, nil
	case "shortid", "short_id", "short-id":
		return ModeShortID, nil
	case "mediaid", "media_id", "media-id":
		return ModeMediaID, nil
	case "":
		return "", fmt.Errorf("mode 不能为空")
	default:
		return "", fmt.Errorf("mode 只能是 guid、shortid 或 mediaid，实际是 %q", s)
	}
}

// Modes 是一组独立开关（GUI 形态：任意组合都合法）。
// CLI 的“单选 mode”只是它的一个特例，见 ModesOf。
type Modes struct {
	GUID    bool `json:"check_guid"`
	ShortID bool `json:"check_short_id"`
	MediaID bool `json:"check_media_id"`
}

func ModesOf(m Mode) Modes {
	switch m {
	case ModeGUID:
		return Modes{GUID: true}
	case ModeShortID:
		return Modes{ShortID: true}
	case ModeMediaID:
		return Modes{MediaID: true}
	default:
		return Modes{}
	}
}

func (ms Modes) Has(m Mode) bool {
	switch m {
	case ModeGUID:
		return ms.GUID
	case ModeShortID:
		return ms.ShortID
	case ModeMediaID:
		return ms.MediaID
	default:
		return false
	}
}

// Enabled 按固定顺序返回已开启的 mode。
func (ms Modes) Enabled() []Mode {
	out := make([]Mode, 0, len(AllModes))
	for _, m := range AllModes {
		if ms.Has(m) {
			out = append(out, m)
		}
	}
	return out
}

func (ms Modes) Any() bool { return ms.GUID || ms.ShortID || ms.MediaID }

func (ms Modes) String() string {
	en := ms.Enabled()
	if len(en) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(en))
	for _, m := range en {
		parts = append(parts, string(m))
	}
	return strings.Join(parts, "+")
}
