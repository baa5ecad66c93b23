//go:build linux

package util

import (
	"strings"
	"testing"
)

const sampleMounts = `sysfs /sys sysfs rw,nosuid,nodev,noexec,relatime 0 0
/dev/sda1 / ext4 rw,relatime 0 0
nas:/export /mnt/nas nfs4 rw,relatime,vers=4.2 0 0
//box/share /mnt/nas/smb\040share cifs rw 0 0
user@host:/data /home/u/remote fuse.sshfs rw 0 0
/dev/sdb1 /mnt/nasty ext4 rw 0 0
`

func TestParseMounts(t *testing.T) {
	mounts, err := parseMounts(strings.NewReader(sampleMounts))
	if err != nil {
		t.Fatalf("parseMounts failed: %v", err)
	}
	if len(mounts) != 6 {
		t.Errorf("Expected 6 mounts, got %d", len(mounts))
	}
	if mounts["/mnt/nas/smb share"] != "cifs" {
		t.Errorf("Expected escaped space to be decoded, got %v", mounts)
	}
}

func TestMountFor(t *testing.T) {
	mounts, _ := parseMounts(strings.NewReader(sampleMounts))

	tests := []struct {
		path      string
		wantMount string
		wantType  string
	}{
		{"/mnt/nas/channels/yts.db", "/mnt/nas", "nfs4"},
		{"/mnt/nas", "/mnt/nas", "nfs4"},
		{"/mnt/nasty/yts.db", "/mnt/nasty", "ext4"},
		{"/mnt/nas/smb share/x", "/mnt/nas/smb share", "cifs"},
		{"/home/u/remote/db", "/home/u/remote", "fuse.sshfs"},
		{"/var/lib/yts.db", "/", "ext4"},
	}

	for _, tt := range tests {
		mp, fsType := mountFor(tt.path, mounts)
		if mp != tt.wantMount || fsType != tt.wantType {
			t.Errorf("mountFor(%s) = %s (%s), expected %s (%s)", tt.path, mp, fsType, tt.wantMount, tt.wantType)
		}
	}
}

func TestDetectNetworkFilesystem_Root(t *testing.T) {
	info, err := DetectNetworkFilesystem("/")
	if err != nil {
		t.Fatalf("DetectNetworkFilesystem failed for root: %v", err)
	}
	t.Logf("Root: network=%v protocol=%s mount=%s", info.IsNetwork, info.Protocol, info.MountPath)
}

func TestDetectNetworkFilesystem_NonExistent(t *testing.T) {
	if _, err := DetectNetworkFilesystem("/this/path/does/not/exist/hopefully"); err == nil {
		t.Error("Expected error for non-existent path")
	}
}
