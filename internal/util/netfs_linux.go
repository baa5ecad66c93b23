//go:build linux

package util

import (
	"bufio"
	"io"
	"os"
	"strings"
	"syscall"
)

// Kernel superblock magic numbers of network filesystems.
var networkMagic = map[uint32]string{
	0x6969:     "nfs",
	0xff534d42: "cifs",
	0xfe534d42: "smb2",
	0x517b:     "smb",
	0x564c:     "ncp",
	0x01021997: "9p",
}

func detectPlatformNetwork(path string, stat *syscall.Statfs_t) (*NetworkInfo, error) {
	info := &NetworkInfo{}
	if proto, ok := networkMagic[uint32(stat.Type)]; ok {
		info.IsNetwork = true
		info.Protocol = proto
	}

	// FUSE mounts (sshfs, rclone) only show up by name in /proc/mounts.
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return info, nil
	}
	defer f.Close()

	mounts, err := parseMounts(f)
	if err != nil {
		return info, nil
	}
	if mp, fsType := mountFor(path, mounts); mp != "" {
		info.MountPath = mp
		if isNetworkFSType(fsType) {
			info.IsNetwork = true
			info.Protocol = strings.ToLower(fsType)
		}
	}
	return info, nil
}

// parseMounts reads /proc/mounts formatted lines into mount point -> fs type.
func parseMounts(r io.Reader) (map[string]string, error) {
	mounts := make(map[string]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		// device mountpoint fstype options dump pass
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		mounts[unescapeMount(fields[1])] = fields[2]
	}
	return mounts, sc.Err()
}

// mountFor returns the longest mount point containing path.
func mountFor(path string, mounts map[string]string) (string, string) {
	best := ""
	for mp := range mounts {
		if !within(path, mp) || len(mp) <= len(best) {
			continue
		}
		best = mp
	}
	if best == "" {
		return "", ""
	}
	return best, mounts[best]
}

func within(path, mountPoint string) bool {
	if mountPoint == "/" || path == mountPoint {
		return true
	}
	return strings.HasPrefix(path, mountPoint+"/")
}

// unescapeMount decodes the octal escapes /proc/mounts uses for spaces.
func unescapeMount(s string) string {
	return strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`).Replace(s)
}
