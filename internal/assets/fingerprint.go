package assets

import (
	"fmt"
	"os"
	"strconv"
)

// CurrentFingerprint returns override when set, otherwise the modification
// time of the running executable in milliseconds. Installing a new build
// therefore triggers provisioning on the next Initialize.
func CurrentFingerprint(override string) (Fingerprint, error) {
	if override != "" {
		return Fingerprint(override), nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	info, err := os.Stat(exe)
	if err != nil {
		return "", fmt.Errorf("failed to stat executable: %w", err)
	}
	return Fingerprint(strconv.FormatInt(info.ModTime().UnixMilli(), 10)), nil
}
