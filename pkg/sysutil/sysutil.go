package sysutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// checkoutMarker is the directory that identifies a platform checkout root.
const checkoutMarker = "src/scripts"

// FindCheckoutRoot walks upward from start looking for a directory that
// contains the checkout marker. It returns the discovered root and true,
// or ("", false) when no ancestor is a checkout.
func FindCheckoutRoot(start string) (string, bool) {
	dir := filepath.Clean(start)
	for {
		marker := filepath.Join(dir, filepath.FromSlash(checkoutMarker))
		if info, err := os.Stat(marker); err == nil && info.IsDir() {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// BlockDevices answers questions about local block devices. SysBlock is
// overridable so tests can point it at a fake sysfs tree.
type BlockDevices struct {
	SysBlock string
}

// NewBlockDevices returns a BlockDevices reading the host's real sysfs.
func NewBlockDevices() *BlockDevices {
	return &BlockDevices{SysBlock: "/sys/block"}
}

// Removable reports whether the named device (e.g. /dev/sdb) is a
// removable block device according to sysfs.
func (b *BlockDevices) Removable(device string) (bool, error) {
	name := filepath.Base(device)
	if name == "" || name == "." || name == "/" {
		return false, fmt.Errorf("invalid device path %q", device)
	}
	data, err := os.ReadFile(filepath.Join(b.SysBlock, name, "removable"))
	if err != nil {
		return false, fmt.Errorf("reading removable flag for %s: %w", device, err)
	}
	return strings.TrimSpace(string(data)) == "1", nil
}
