package parser

import "strings"

// pseudoFSTypes contains filesystem types that are excluded from disk
// metrics: virtual/system filesystems and network/remote filesystems that
// don't represent local storage devices.
var pseudoFSTypes = map[string]bool{
	// Virtual / system filesystems
	"devfs":         true,
	"autofs":        true,
	"nullfs":        true,
	"tmpfs":         true,
	"sysfs":         true,
	"proc":          true,
	"procfs":        true,
	"devtmpfs":      true,
	"cgroup":        true,
	"cgroup2":       true,
	"overlay":       true,
	"squashfs":      true,
	"fuse.snapfuse": true,
	"fdescfs":       true,
	"linprocfs":     true,
	"kernfs":        true,
	"mfs":           true,
	"none":          true,
	"udev":          true,
	"shm":           true,
	"efivarfs":      true,
	"bpf":           true,
	"ramfs":         true,

	// Network / remote filesystems
	"nfs":        true,
	"nfs4":       true,
	"cifs":       true,
	"smbfs":      true,
	"fuse.sshfs": true,
	"9p":         true,
	"afs":        true,
	"glusterfs":  true,
	"ceph":       true,
	"davfs2":     true,
}

// IsPseudoFilesystem reports whether a filesystem type (or, for df output
// that has no type column, a filesystem source name) is virtual or remote.
func IsPseudoFilesystem(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if pseudoFSTypes[name] {
		return true
	}
	// Remote sources show up in df as host:/export or //server/share.
	return strings.Contains(name, ":/") || strings.HasPrefix(name, "//")
}

// IsSystemMount returns true for macOS system volumes and other OS-internal
// mount points that shouldn't be reported.
func IsSystemMount(mount string) bool {
	for _, prefix := range []string{"/System/Volumes/", "/private/var/vm", "/dev/", "/run/", "/snap/"} {
		if strings.HasPrefix(mount, prefix) {
			return true
		}
	}
	return mount == "/dev" || mount == "/run"
}
