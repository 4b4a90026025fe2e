package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pitchsync/internal/config"
)

// ConfigNames lists the config file names searched in the project root, in
// order of preference.
var ConfigNames = []string{"pitchsync.yaml", "pitchsync.yml", "pitchsync.toml"}

// ProjectPaths captures canonical locations for a pitchsync project.
type ProjectPaths struct {
	Root         string
	ConfigFile   string
	TrackingFile string
	TaggedFile   string
	ClipsDir     string
	ExtraDirs    []string
	OutputDir    string
	CombinedFile string
	MetaDir      string
	LogsDir      string
	ClipLogsDir  string
	LedgerFile   string
	LockFile     string
}

// Resolve determines the project root using the optional --project flag or the
// current working directory when the flag is empty.
func Resolve(projectFlag string) (ProjectPaths, error) {
	var (
		root string
		err  error
	)

	if projectFlag != "" {
		root, err = filepath.Abs(projectFlag)
	} else {
		root, err = os.Getwd()
	}
	if err != nil {
		return ProjectPaths{}, fmt.Errorf("resolve project root: %w", err)
	}

	return newProjectPaths(root), nil
}

func newProjectPaths(root string) ProjectPaths {
	metaDir := filepath.Join(root, ".pitchsync")
	logsDir := filepath.Join(root, "logs")
	return ProjectPaths{
		Root:        root,
		ConfigFile:  findConfig(root),
		MetaDir:     metaDir,
		LogsDir:     logsDir,
		ClipLogsDir: filepath.Join(logsDir, "clips"),
		LedgerFile:  filepath.Join(metaDir, "ledger.db"),
		LockFile:    filepath.Join(metaDir, "run.lock"),
	}
}

func findConfig(root string) string {
	for _, name := range ConfigNames {
		candidate := filepath.Join(root, name)
		if ok, _ := FileExists(candidate); ok {
			return candidate
		}
	}
	return filepath.Join(root, ConfigNames[0])
}

// ApplyConfig resolves the configured inputs and outputs against the root.
func ApplyConfig(pp ProjectPaths, cfg config.Config) ProjectPaths {
	pp.TrackingFile = pp.Abs(cfg.Inputs.Tracking)
	pp.TaggedFile = pp.Abs(cfg.Inputs.Tagged)
	pp.ClipsDir = pp.Abs(cfg.Clips.Dir)
	pp.ExtraDirs = nil
	for _, dir := range cfg.Clips.Extra {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		pp.ExtraDirs = append(pp.ExtraDirs, pp.Abs(dir))
	}
	pp.OutputDir = pp.Abs(cfg.Output.Dir)
	if combined := strings.TrimSpace(cfg.Output.Combined); combined != "" {
		if filepath.IsAbs(combined) {
			pp.CombinedFile = filepath.Clean(combined)
		} else {
			pp.CombinedFile = filepath.Join(pp.OutputDir, combined)
		}
	}
	return pp
}

// Abs resolves value against the project root unless it is already absolute.
func (p ProjectPaths) Abs(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(p.Root, value)
}

// Rel returns path relative to the project root when it lies inside it.
func (p ProjectPaths) Rel(path string) string {
	rel, err := filepath.Rel(p.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// EnsureMetaDirs creates the metadata, log and output directories.
func (p ProjectPaths) EnsureMetaDirs() error {
	dirs := []string{p.MetaDir, p.LogsDir, p.ClipLogsDir}
	if p.OutputDir != "" {
		dirs = append(dirs, p.OutputDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
