package scan

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/John-Robertt/findid/internal/domain"
)

// UnitPattern 是 work unit 的匹配模式（任意深度，扩展名大小写敏感）。
const UnitPattern = "**/*.wwu"

// UnitExt 是 work unit 的扩展名。
const UnitExt = ".wwu"

// ScanUnits 枚举 root 下所有 work unit 文件。
//
// 规则：
// - 无法读取的目录/条目静默跳过，不让整次扫描失败
// - exclude：doublestar 模式，相对 root、以 '/' 分隔；不含通配符的写法（如 "temp"）等价于 "temp/**"
// - 只在 root 不存在/不是目录、或 exclude 模式非法时返回错误
//
// 注意：扫描阶段不读文件内容。
func ScanUnits(root string, exclude []string) ([]domain.UnitFile, error) {
	root = filepath.Clean(root)
	if err := checkDir(root); err != nil {
		return nil, err
	}

	patterns, err := buildExcluded(exclude)
	if err != nil {
		return nil, err
	}

	// 不传 WithFailOnIOErrors：doublestar 默认忽略读目录失败，不可读的子树直接跳过。
	rels, err := doublestar.Glob(os.DirFS(root), UnitPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}

	files := make([]domain.UnitFile, 0, len(rels))
	for _, rel := range rels {
		if isExcluded(rel, patterns) {
			continue
		}
		files = append(files, domain.UnitFile{
			AbsPath: filepath.Join(root, filepath.FromSlash(rel)),
			RelPath: filepath.FromSlash(rel),
		})
	}

	// 强制稳定输出，避免不同平台/文件系统的遍历顺序差异。
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// HasUnitsAtTop 判断 root 目录下（不递归）是否直接存在至少一个 .wwu 文件。
func HasUnitsAtTop(root string) (bool, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), UnitExt) {
			return true, nil
		}
	}
	return false, nil
}

// ValidatePattern 检查 exclude 模式是否合法（供配置校验复用）。
func ValidatePattern(p string) error {
	p = normalizePattern(p)
	if p == "" {
		return nil
	}
	if !doublestar.ValidatePattern(p) {
		return fmt.Errorf("非法的 exclude 模式：%q", p)
	}
	return nil
}

func checkDir(root string) error {
	fi, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("不是目录：%q", root)
	}
	return nil
}

func buildExcluded(exclude []string) ([]string, error) {
	out := make([]string, 0, len(exclude)*2)
	for _, x := range exclude {
		if err := ValidatePattern(x); err != nil {
			return nil, err
		}
		x = normalizePattern(x)
		if x == "" {
			continue
		}
		// "temp" 与 "temp/**" 都排除整个目录；"**/*.bak.wwu" 这类直接按文件匹配。
		out = append(out, x, path.Join(x, "**"))
	}
	sort.Strings(out)
	return out, nil
}

func normalizePattern(p string) string {
	p = strings.TrimSpace(filepath.ToSlash(p))
	p = strings.TrimPrefix(p, "./")
	return strings.TrimSuffix(p, "/")
}

func isExcluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
