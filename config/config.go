// Package config loads anchorctl/anchor-shell configuration from a JSONC
// file, the same hujson-standardize-then-json-unmarshal approach the
// teacher's root config.go uses for its own config file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// Config holds the settings anchorctl and anchor-shell need to open a
// backing store.
type Config struct {
	// BackingFile is the path to the mmap'd file holding stable memory.
	BackingFile string `json:"backing_file"` //nolint:tagliatelle // snake_case for config file

	// IDRangeLo and IDRangeHi bound the anchor-number range a freshly
	// created store is assigned. Ignored when opening an existing store.
	IDRangeLo uint64 `json:"id_range_lo"` //nolint:tagliatelle // snake_case for config file
	IDRangeHi uint64 `json:"id_range_hi"` //nolint:tagliatelle // snake_case for config file

	// Managed selects the v7 managed layout for a freshly created store.
	// Ignored when opening an existing store, whose layout is read from
	// its own header.
	Managed bool `json:"managed"`

	// BackingFileAbs is BackingFile resolved against the effective working
	// directory. Computed by Load, not read from a config file.
	BackingFileAbs string `json:"-"` //nolint:tagliatelle // not serialized
}

// ConfigFileName is the default config file name, looked for in the
// current working directory.
const ConfigFileName = ".anchorctl.jsonc"

var (
	errConfigFileNotFound = errors.New("config file not found")
	errConfigFileRead     = errors.New("could not read config file")
	errConfigInvalid      = errors.New("invalid config file")
	errBackingFileEmpty   = errors.New("backing_file must not be empty")
)

// Default returns the configuration used when no config file is present
// and no CLI flags override it.
func Default() Config {
	return Config{
		BackingFile: "anchors.db",
		IDRangeLo:   10_000,
		IDRangeHi:   10_000 + 100_000,
	}
}

// Load reads configuration with the following precedence (highest wins):
//  1. Default()
//  2. The project config file at workDir/ConfigFileName, if present
//  3. An explicit config file at configPath, if non-empty
//  4. cliOverrides, applied field-by-field by the caller
//
// configPath, if given, must exist; the project default file is optional.
func Load(workDir, configPath string) (Config, string, error) {
	cfg := Default()

	projectPath := filepath.Join(workDir, ConfigFileName)

	fileCfg, loadedFrom, err := loadOptional(projectPath)
	if err != nil {
		return Config{}, "", err
	}

	if loadedFrom != "" {
		cfg = merge(cfg, fileCfg)
	}

	if configPath != "" {
		explicit := configPath
		if !filepath.IsAbs(explicit) {
			explicit = filepath.Join(workDir, explicit)
		}

		if _, statErr := os.Stat(explicit); statErr != nil {
			return Config{}, "", fmt.Errorf("%w: %s", errConfigFileNotFound, configPath)
		}

		explicitCfg, _, loadErr := loadOptional(explicit)
		if loadErr != nil {
			return Config{}, "", loadErr
		}

		cfg = merge(cfg, explicitCfg)
		loadedFrom = explicit
	}

	if err := validate(cfg); err != nil {
		return Config{}, "", err
	}

	cfg.BackingFileAbs = cfg.BackingFile
	if !filepath.IsAbs(cfg.BackingFileAbs) {
		cfg.BackingFileAbs = filepath.Join(workDir, cfg.BackingFileAbs)
	}

	return cfg, loadedFrom, nil
}

// loadOptional reads and parses the config file at path. A missing file is
// not an error: it returns the zero Config and an empty loadedFrom.
func loadOptional(path string) (Config, string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-controlled, same as teacher's LoadConfig
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, "", nil
		}

		return Config{}, "", fmt.Errorf("%w: %s", errConfigFileRead, path)
	}

	cfg, err := parse(data)
	if err != nil {
		return Config{}, "", fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}

	return cfg, path, nil
}

func parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.BackingFile != "" {
		base.BackingFile = overlay.BackingFile
	}

	if overlay.IDRangeLo != 0 || overlay.IDRangeHi != 0 {
		base.IDRangeLo = overlay.IDRangeLo
		base.IDRangeHi = overlay.IDRangeHi
	}

	base.Managed = base.Managed || overlay.Managed

	return base
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.BackingFile) == "" {
		return errBackingFileEmpty
	}

	if cfg.IDRangeHi < cfg.IDRangeLo {
		return fmt.Errorf("%w: id_range_hi (%d) < id_range_lo (%d)", errConfigInvalid, cfg.IDRangeHi, cfg.IDRangeLo)
	}

	return nil
}

// Format returns cfg as indented JSON, for `anchorctl config print`.
func Format(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("formatting config: %w", err)
	}

	return string(data), nil
}
