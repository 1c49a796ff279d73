//go:build windows

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	local := os.Getenv("LOCALAPPDATA")
	programData := os.Getenv("ProgramData")
	return []string{
		"assetprobe.yaml",
		filepath.Join(local, "AssetProbe", "config.yaml"),
		filepath.Join(programData, "AssetProbe", "config.yaml"),
	}
}
