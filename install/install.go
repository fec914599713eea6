// Package install provides support for installing the llamacpp libraries and
// downloading model files.
package install

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/hybridgroup/yzma/pkg/download"
)

const versionFile = "version.json"

type tag struct {
	TagName string `json:"tag_name"`
}

// VersionInfo provides information about what is installed and what is the
// latest version of llamacpp available.
type VersionInfo struct {
	Latest  string
	Current string
}

// Llama installs or upgrades to the latest version of llamacpp at the
// specified libPath.
func Llama(libPath string, processor download.Processor, allowUpgrade bool) (VersionInfo, error) {
	if err := download.InstallLibraries(libPath, processor, allowUpgrade); err != nil {
		file := filepath.Join(libPath, "libmtmd.dylib")

		if _, err := os.Stat(file); err == nil {
			return VersionInfo{}, nil
		}

		return VersionInfo{}, fmt.Errorf("install-llama: unable to install llamacpp: %w", err)
	}

	return RetrieveVersionInfo(libPath)
}

// RetrieveVersionInfo retrieves the version information for the llamacpp libs
// and the current version installed.
func RetrieveVersionInfo(libPath string) (VersionInfo, error) {
	versionInfoPath := filepath.Join(libPath, versionFile)

	version, err := download.LlamaLatestVersion()
	if err != nil {
		return VersionInfo{}, fmt.Errorf("retrieve-version-info: unable to get latest version of llamacpp: %w", err)
	}

	d, err := os.ReadFile(versionInfoPath)
	if err != nil {
		return VersionInfo{Current: "unknown", Latest: version}, nil
	}

	var tag tag
	if err := json.Unmarshal(d, &tag); err != nil {
		return VersionInfo{Current: "unknown", Latest: version}, fmt.Errorf("retrieve-version-info: unable to parse version info file: %w", err)
	}

	return VersionInfo{Latest: version, Current: tag.TagName}, nil
}

// Model downloads the specified model file if it does not already exist at
// the specified path and returns the local file name.
func Model(modelURL string, modelPath string) (string, error) {
	u, err := url.Parse(modelURL)
	if err != nil {
		return "", fmt.Errorf("install-model: unable to parse modelURL: %w", err)
	}

	file := filepath.Join(modelPath, path.Base(u.Path))

	if _, err := os.Stat(file); err == nil {
		return file, nil
	}

	if err := download.GetModel(modelURL, modelPath); err != nil {
		return "", fmt.Errorf("install-model: unable to download model: %w", err)
	}

	return file, nil
}
