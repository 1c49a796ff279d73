//go:build !windows

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		"assetprobe.yaml",
		filepath.Join(home, ".assetprobe", "config.yaml"),
		"/etc/assetprobe/config.yaml",
	}
}
