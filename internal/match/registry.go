package match

import (
	"fmt"

	"github.com/John-Robertt/findid/internal/domain"
)

// Registry 是策略的只读注册表（按 mode 索引）。
type Registry struct {
	byMode map[domain.Mode]Strategy
}

func NewRegistry(strategies ...Strategy) (Registry, error) {
	byMode := make(map[domain.Mode]Strategy, len(strategies))
	for _, s := range strategies {
		if s == nil {
			return Registry{}, fmt.Errorf("strategy 不能为空")
		}
		m := s.Mode()
		if m == "" {
			return Registry{}, fmt.Errorf("strategy.Mode 不能为空")
		}
		if _, ok := byMode[m]; ok {
			return Registry{}, fmt.Errorf("重复的 strategy：%q", m)
		}
		byMode[m] = s
	}
	return Registry{byMode: byMode}, nil
}

// Default 注册全部三种内置策略。
func Default() Registry {
	r, err := NewRegistry(GUID{}, ShortID{}, MediaID{})
	if err != nil {
		panic(err)
	}
	return r
}

func (r Registry) Get(m domain.Mode) (Strategy, bool) {
	if r.byMode == nil {
		return nil, false
	}
	s, ok := r.byMode[m]
	return s, ok
}

// Select 按固定顺序返回已开启且已注册的策略。
func (r Registry) Select(ms domain.Modes) []Strategy {
	out := make([]Strategy, 0, len(domain.AllModes))
	for _, m := range ms.Enabled() {
		if s, ok := r.Get(m); ok {
			out = append(out, s)
		}
	}
	return out
}
