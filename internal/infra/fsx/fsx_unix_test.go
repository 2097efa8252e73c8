//go:build unix

package fsx

import (
	"errors"
	"os"
	"syscall"
	"testing"
)

func TestRename_CrossDeviceEXDEV(t *testing.T) {
	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
	}
	defer func() { renameFunc = old }()

	err := Rename("/a", "/b")
	var ce *CrossDeviceError
	if !errors.As(err, &ce) {
		t.Fatalf("期望 CrossDeviceError，实际：%T %v", err, err)
	}
	if !errors.Is(err, syscall.EXDEV) {
		t.Fatalf("CrossDeviceError 应能 Unwrap 到 EXDEV：%v", err)
	}
}
