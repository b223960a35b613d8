package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when none is given, relative to the working directory.
const DefaultPath = "config.yaml"

// EnvPrefix prefixes the environment variables that override file values,
// e.g. UMAP_EXPORT_PACKAGE.
const EnvPrefix = "UMAP_"

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid config")

// Config holds the export settings. Files are YAML (JSON also parses) or,
// with a .toml extension, TOML.
type Config struct {
	ExportPackage             string `yaml:"export_package" toml:"export_package"`
	DumpSource                string `yaml:"dump_source" toml:"dump_source"`
	OutputDir                 string `yaml:"output_dir" toml:"output_dir"`
	ReadMaterials             bool   `yaml:"read_materials" toml:"read_materials"`
	ExportBuildingFoundations bool   `yaml:"export_building_foundations" toml:"export_building_foundations"`
	ExportToDDSWhenPossible   bool   `yaml:"export_to_dds_when_possible" toml:"export_to_dds_when_possible"`
	ImageFormat               string `yaml:"image_format" toml:"image_format"`
	Workers                   int    `yaml:"workers" toml:"workers"`
	IndentJSON                bool   `yaml:"indent_json" toml:"indent_json"`
	LogDir                    string `yaml:"log_dir" toml:"log_dir"`
	LogLevel                  string `yaml:"log_level" toml:"log_level"`
}

// Default returns the default settings: materials and building foundations
// on, PNG textures, one worker per CPU.
func Default() Config {
	return Config{
		OutputDir:                 ".",
		ReadMaterials:             true,
		ExportBuildingFoundations: true,
		ExportToDDSWhenPossible:   false,
		ImageFormat:               "png",
		Workers:                   0,
		IndentJSON:                false,
		LogDir:                    "logs",
		LogLevel:                  "info",
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads settings from path over Default(). A missing file yields the
// defaults; a file that does not parse is an error.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("config: %w", err)
	}
	if isTOML(path) {
		err = toml.Unmarshal(data, &c)
	} else {
		err = yaml.Unmarshal(data, &c)
	}
	if err != nil {
		return Default(), fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

// Save writes c to path, creating the directory if needed.
func Save(path string, c Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	var data []byte
	var err error
	if isTOML(path) {
		data, err = toml.Marshal(c)
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides fields from UMAP_* variables found by lookup (usually
// os.LookupEnv). Keys are the upper-cased file keys.
func (c *Config) ApplyEnv(lookup func(key string) (string, bool)) error {
	strs := map[string]*string{
		"EXPORT_PACKAGE": &c.ExportPackage,
		"DUMP_SOURCE":    &c.DumpSource,
		"OUTPUT_DIR":     &c.OutputDir,
		"IMAGE_FORMAT":   &c.ImageFormat,
		"LOG_DIR":        &c.LogDir,
		"LOG_LEVEL":      &c.LogLevel,
	}
	bools := map[string]*bool{
		"READ_MATERIALS":              &c.ReadMaterials,
		"EXPORT_BUILDING_FOUNDATIONS": &c.ExportBuildingFoundations,
		"EXPORT_TO_DDS_WHEN_POSSIBLE": &c.ExportToDDSWhenPossible,
		"INDENT_JSON":                 &c.IndentJSON,
	}
	for k, p := range strs {
		if v, ok := lookup(EnvPrefix + k); ok {
			*p = v
		}
	}
	for k, p := range bools {
		v, ok := lookup(EnvPrefix + k)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, k, err)
		}
		*p = b
	}
	if v, ok := lookup(EnvPrefix + "WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %sWORKERS: %w", EnvPrefix, err)
		}
		c.Workers = n
	}
	return nil
}

// ExpandPaths replaces a leading ~ in the path settings with the home directory.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.DumpSource, &c.OutputDir, &c.LogDir} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the settings an export needs.
func (c Config) Validate() error {
	var errs []error
	if c.ExportPackage == "" {
		errs = append(errs, fmt.Errorf("%w: export_package is empty", ErrInvalid))
	}
	if c.DumpSource == "" {
		errs = append(errs, fmt.Errorf("%w: dump_source is empty", ErrInvalid))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers is %d", ErrInvalid, c.Workers))
	}
	if c.OutputDir == "" {
		errs = append(errs, fmt.Errorf("%w: output_dir is empty", ErrInvalid))
	}
	return errors.Join(errs...)
}
