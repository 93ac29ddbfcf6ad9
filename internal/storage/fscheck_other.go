//go:build !darwin && !linux

package storage

import "fmt"

// Platforms without a statfs wrapper cannot identify the mount; the
// caller treats detection failure as best-effort and starts anyway.
func detectFilesystemType(path string) (string, error) {
	return "", fmt.Errorf("filesystem type detection not implemented for this platform")
}
