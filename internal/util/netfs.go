package util

import (
	"path/filepath"
	"strings"
)

// NetworkInfo contains information about a filesystem's network characteristics
type NetworkInfo struct {
	IsNetwork bool   // Whether the filesystem is network-mounted
	Protocol  string // Protocol (smb, nfs, cifs, etc.) or empty if local
	MountPath string // Mount point of the filesystem
}

// networkFSTypes are substrings of filesystem type names that denote a
// network mount on Linux (/proc/mounts) or macOS (statfs f_fstypename).
var networkFSTypes = []string{
	"nfs", "cifs", "smb", "ncpfs", "afpfs", "webdav",
	"fuse.sshfs", "fuse.rclone", "9p",
}

func isNetworkFSType(name string) bool {
	name = strings.ToLower(name)
	for _, t := range networkFSTypes {
		if strings.Contains(name, t) {
			return true
		}
	}
	return false
}

// IsNetworkPath checks if a path is on a network filesystem (convenience function)
func IsNetworkPath(path string) bool {
	info, err := DetectNetworkFilesystem(path)
	if err != nil {
		return false
	}
	return info.IsNetwork
}

// SQLiteConcurrency returns how many workers may write to the SQLite file at
// dbPath in parallel. A database on a network mount gets a single writer
// because WAL mode and file locking do not work across hosts; the detected
// mount is returned so callers can tell the user.
func SQLiteConcurrency(dbPath string, requested int) (int, *NetworkInfo) {
	dbPath = sqliteFilePath(dbPath)
	if dbPath == "" || dbPath == ":memory:" {
		return requested, nil
	}

	// The file may not exist before the first import; its directory does.
	info, err := DetectNetworkFilesystem(filepath.Dir(dbPath))
	if err != nil {
		DebugLog("Filesystem detection failed for %s: %v", dbPath, err)
		return requested, nil
	}
	if info.IsNetwork && requested > 1 {
		return 1, info
	}
	return requested, info
}

// sqliteFilePath strips the file: scheme and query string from a SQLite DSN.
func sqliteFilePath(dsn string) string {
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		dsn = dsn[:i]
	}
	dsn = strings.TrimPrefix(dsn, "file:")
	// file:///abs/path keeps a single leading slash.
	if strings.HasPrefix(dsn, "///") {
		dsn = dsn[2:]
	}
	return dsn
}
