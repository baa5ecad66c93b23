//go:build darwin

package util

import (
	"syscall"
)

func detectPlatformNetwork(path string, stat *syscall.Statfs_t) (*NetworkInfo, error) {
	info := &NetworkInfo{MountPath: cString(stat.Mntonname[:])}
	fsType := cString(stat.Fstypename[:])
	if isNetworkFSType(fsType) || fsType == "osxfuse" || fsType == "macfuse" {
		info.IsNetwork = true
		info.Protocol = fsType
	}
	return info, nil
}

// cString converts a NUL terminated statfs name field.
func cString(arr []int8) string {
	b := make([]byte, 0, len(arr))
	for _, c := range arr {
		if c == 0 {
			break
		}
		b = append(b, byte(c))
	}
	return string(b)
}
