//go:build darwin

package storage

import (
	"fmt"
	"syscall"
)

// detectFilesystemType reports the mount's filesystem name. Darwin
// hands it back directly as a NUL-terminated int8 array in Fstypename.
func detectFilesystemType(path string) (string, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return "", fmt.Errorf("statfs %q: %w", path, err)
	}

	name := stat.Fstypename[:]
	out := make([]byte, 0, len(name))
	for _, c := range name {
		if c == 0 {
			break
		}
		out = append(out, byte(c))
	}
	return string(out), nil
}
