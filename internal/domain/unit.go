package domain

// UnitFile 描述一次扫描得到的 work unit（.wwu）文件。
//
// 不变量：
// - AbsPath 必须是 clean + absolute
// - 扫描阶段不读文件内容
type UnitFile struct {
	AbsPath string
	RelPath string
}
