package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml/v2"

	"github.com/John-Robertt/findid/internal/domain"
	"github.com/John-Robertt/findid/internal/infra/fsx"
	"github.com/John-Robertt/findid/internal/scan"
)

const (
	// ErrCodeNotFound 表示配置文件不存在（调用方通常降级为默认配置）。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeRootInvalid 表示搜索根目录未指定、不存在或不是目录/.wproj。
	ErrCodeRootInvalid = "root_invalid"
	// ErrCodeRootNoUnits 表示 CLI 指定的目录下没有直接包含 .wwu。
	ErrCodeRootNoUnits = "root_no_units"
	// ErrCodeModeInvalid 表示 --mode 取值非法。
	ErrCodeModeInvalid = "mode_invalid"
	// ErrCodeModesEmpty 表示三种匹配策略全部关闭。
	ErrCodeModesEmpty = "modes_empty"
)

const (
	// DefaultFile 是默认配置文件名（相对 cwd），与旧版 GUI 的 config.json 兼容。
	DefaultFile = "config.json"
	// MaxWorkers 是并发上限；超出截断。
	MaxWorkers = 64
)

// ProjectExt 是 Wwise 工程文件扩展名；传入它时以其所在目录为搜索根。
const ProjectExt = ".wproj"

// Config 对应配置文件的结构（JSON 或 TOML）。
//
// 前四个字段与旧版 GUI 的 config.json 完全一致；workers/exclude 为可选扩展。
type Config struct {
	Path         string   `json:"path" toml:"path"`
	CheckGUID    bool     `json:"check_guid" toml:"check_guid"`
	CheckShortID bool     `json:"check_short_id" toml:"check_short_id"`
	CheckMediaID bool     `json:"check_media_id" toml:"check_media_id"`
	Workers      int      `json:"workers,omitempty" toml:"workers,omitempty"`
	Exclude      []string `json:"exclude,omitempty" toml:"exclude,omitempty"`
}

// Default 是首次运行的配置：只开启 GUID 查找，path 为空。
func Default() Config {
	return Config{CheckGUID: true}
}

func (c Config) Modes() domain.Modes {
	return domain.Modes{GUID: c.CheckGUID, ShortID: c.CheckShortID, MediaID: c.CheckMediaID}
}

func (c *Config) SetModes(ms domain.Modes) {
	c.CheckGUID = ms.GUID
	c.CheckShortID = ms.ShortID
	c.CheckMediaID = ms.MediaID
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Load 读取配置文件：扩展名为 .toml 时按 TOML 解析，否则按 JSON。
func Load(file string) (Config, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, &Error{Code: ErrCodeNotFound, Path: file, Err: err}
		}
		return Config{}, &Error{Code: ErrCodeInvalid, Path: file, Err: err}
	}

	c := Default()
	if isTOML(file) {
		err = toml.Unmarshal(b, &c)
	} else {
		err = json.Unmarshal(b, &c)
	}
	if err != nil {
		return Config{}, &Error{Code: ErrCodeInvalid, Path: file, Err: err}
	}
	return c, nil
}

// LoadOrDefault 总是返回可用配置：读取失败（不存在/损坏）时回退到 Default。
// 返回的 error 仅供记录日志，调用方不应因此中止。
func LoadOrDefault(file string) (Config, error) {
	c, err := Load(file)
	if err != nil {
		return Default(), err
	}
	return c, nil
}

// Save 覆盖写入配置文件（文件锁 + 原子替换）。
func Save(file string, c Config) error {
	var (
		b   []byte
		err error
	)
	if isTOML(file) {
		b, err = toml.Marshal(c)
	} else {
		b, err = json.MarshalIndent(c, "", "  ")
		b = append(b, '\n')
	}
	if err != nil {
		return err
	}

	file = filepath.Clean(file)
	return fsx.WithFileLock(file, func() error {
		return fsx.WriteFileAtomic(filepath.Dir(file), filepath.Base(file), b)
	})
}

func isTOML(file string) bool {
	return strings.EqualFold(filepath.Ext(file), ".toml")
}

// CLIArgs 是 CLI 暴露的覆盖项，并保留“是否显式指定”的信息。
type CLIArgs struct {
	Path string

	Mode    string
	ModeSet bool

	Workers    int
	WorkersSet bool
}

// EffectiveConfig 是合并并校验后的最终输入（搜索层直接消费）。
type EffectiveConfig struct {
	// Root 是 clean + absolute 的搜索根目录。
	Root string
	// Input 是用户给出的 path 转成的绝对路径（可能是 .wproj 文件），保存配置时写回。
	Input   string
	Modes   domain.Modes
	Workers int
	Exclude []string

	// File 是配置文件的绝对路径；Base 是从中读到的配置（读取失败时为 Default）。
	File string
	Base Config
	// LoadErr 是读取配置时被降级的错误（不存在/损坏），仅供记录。
	LoadErr error
}

// Persisted 返回本次查询后应写回的配置：path 与 mode 取本次生效值，其它字段保持原样。
func (e EffectiveConfig) Persisted() Config {
	c := e.Base
	c.Path = e.Input
	c.SetModes(e.Modes)
	return c
}

// LoadEffective 读取配置文件，并与 CLI 参数合并为最终配置。
//
// 覆盖优先级：
// - path：CLI > config；两者都为空时报错
// - mode：CLI --mode（单选）> config 的三个开关（任意组合）
// - workers：CLI > config > CPU 数；截断到 [1, MaxWorkers]
// - exclude：仅由 config 控制
//
// 配置文件缺失或损坏时静默回退到默认配置（错误放进 LoadErr）。
// 所有校验问题一次性收集后返回，error_code 取第一个问题。
func LoadEffective(cwd, file string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}
	if strings.TrimSpace(file) == "" {
		file = DefaultFile
	}
	file = absCleanFrom(cwdAbs, file)

	base, loadErr := LoadOrDefault(file)
	if Code(loadErr) == ErrCodeNotFound {
		// 首次运行：没有配置文件是正常情况。
		loadErr = nil
	}

	eff := EffectiveConfig{File: file, Base: base, LoadErr: loadErr}

	var (
		merr *multierror.Error
		code string
	)
	fail := func(c string, err error) {
		if code == "" {
			code = c
		}
		merr = multierror.Append(merr, err)
	}

	eff.Modes = base.Modes()
	if cli.ModeSet {
		m, err := domain.ParseMode(cli.Mode)
		if err != nil {
			fail(ErrCodeModeInvalid, err)
		} else {
			eff.Modes = domain.ModesOf(m)
		}
	}
	if !eff.Modes.Any() && code != ErrCodeModeInvalid {
		fail(ErrCodeModesEmpty, fmt.Errorf("至少需要开启一种匹配方式（guid/shortid/mediaid）"))
	}

	workers := base.Workers
	if cli.WorkersSet {
		workers = cli.Workers
	}
	eff.Workers = clampWorkers(workers)

	for _, x := range base.Exclude {
		if err := scan.ValidatePattern(x); err != nil {
			fail(ErrCodeInvalid, err)
		}
	}
	eff.Exclude = append([]string(nil), base.Exclude...)

	fromCLI := strings.TrimSpace(cli.Path) != ""
	eff.Input = base.Path
	if fromCLI {
		eff.Input = cli.Path
	}
	if strings.TrimSpace(eff.Input) == "" {
		fail(ErrCodeRootInvalid, fmt.Errorf("未指定搜索路径（命令行与配置文件 %q 都没有 path）", file))
	} else {
		// 写回绝对路径：换个工作目录再运行时仍指向同一棵树。
		eff.Input = absCleanFrom(cwdAbs, eff.Input)
		root, isProject, err := ResolveRoot(eff.Input)
		switch {
		case err != nil:
			fail(ErrCodeRootInvalid, err)
		case fromCLI && !isProject:
			ok, err := scan.HasUnitsAtTop(root)
			if err != nil {
				fail(ErrCodeRootInvalid, err)
			} else if !ok {
				fail(ErrCodeRootNoUnits, fmt.Errorf("目录 %q 下没有 %s 文件", root, scan.UnitExt))
			}
		}
		eff.Root = root
	}

	if merr != nil {
		return EffectiveConfig{}, &Error{Code: code, Path: file, Err: merr.ErrorOrNil()}
	}
	return eff, nil
}

// ResolveRoot 把用户输入的 path 解析为搜索根目录。
//
// - 目录：即根目录
// - .wproj 文件：取其所在目录（与 GUI 选择工程文件的行为一致），isProject=true
// - 其它：报错
func ResolveRoot(p string) (root string, isProject bool, err error) {
	p = filepath.Clean(p)
	fi, err := os.Stat(p)
	if err != nil {
		return "", false, fmt.Errorf("搜索路径不可用：%w", err)
	}
	if fi.IsDir() {
		return p, false, nil
	}
	if strings.EqualFold(filepath.Ext(p), ProjectExt) {
		return filepath.Dir(p), true, nil
	}
	return "", false, fmt.Errorf("搜索路径必须是目录或 %s 文件：%q", ProjectExt, p)
}

// DefaultWorkers 是未配置并发时的默认值（CPU 数）。
func DefaultWorkers() int {
	return clampWorkers(0)
}

func clampWorkers(n int) int {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n < 1 {
		n = 1
	}
	if n > MaxWorkers {
		n = MaxWorkers
	}
	return n
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}
