package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"sigs.k8s.io/yaml"
)

const (
	maxWalkDepth = 25
)

// configNames are tried in order in each directory during discovery.
var configNames = []string{"sqlimport.yaml", "sqlimport.yml"}

// Config represents the sqlimport configuration from sqlimport.yaml.
type Config struct {
	// Root is the directory scanned for query files.
	Root string `mapstructure:"root" json:"root"`

	// Runtime selects the generator ("go" or "typescript").
	Runtime string `mapstructure:"runtime" json:"runtime"`

	// Aliases maps module aliases to query files or "/*" path prefixes,
	// relative to Root. Read from the config file directly: viper splits
	// keys on dots and lowercases them.
	Aliases map[string]string `mapstructure:"-" json:"aliases,omitempty"`

	// Per-command configuration
	Generate GenerateConfig `mapstructure:"generate" json:"generate"`
	Watch    WatchConfig    `mapstructure:"watch" json:"watch"`
	Doctor   DoctorConfig   `mapstructure:"doctor" json:"doctor"`
}

// GenerateConfig holds code generation settings.
type GenerateConfig struct {
	Output        string `mapstructure:"output" json:"output"`
	TypesDir      string `mapstructure:"types_dir" json:"types_dir"`
	Package       string `mapstructure:"package" json:"package"`
	RuntimeImport string `mapstructure:"runtime_import" json:"runtime_import"`
	Concurrency   int    `mapstructure:"concurrency" json:"concurrency"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" json:"debounce"`
}

// DoctorConfig holds doctor command settings.
type DoctorConfig struct {
	Verbose bool `mapstructure:"verbose" json:"verbose"`
}

// LoadConfig discovers and loads configuration with proper precedence:
// flags > env > config file > defaults.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()

	// 1. Set defaults first (lowest precedence)
	setDefaults(v)

	// 2. Set up environment variable binding
	v.SetEnvPrefix("SQLIMPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 3. Find and load config file
	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	// 4. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	if configPath != "" {
		if cfg.Aliases, err = readAliases(configPath); err != nil {
			return nil, configPath, err
		}
		// A root set in the file is relative to the file.
		if v.InConfig("root") && os.Getenv("SQLIMPORT_ROOT") == "" && !filepath.IsAbs(cfg.Root) {
			cfg.Root = filepath.Join(filepath.Dir(configPath), cfg.Root)
		}
	}

	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	// Top-level defaults
	v.SetDefault("root", ".")
	v.SetDefault("runtime", "go")

	// Generate defaults
	v.SetDefault("generate.output", "")
	v.SetDefault("generate.types_dir", "")
	v.SetDefault("generate.package", "")
	v.SetDefault("generate.runtime_import", "")
	v.SetDefault("generate.concurrency", 0)

	// Watch defaults
	v.SetDefault("watch.debounce", 100*time.Millisecond)

	// Doctor defaults
	v.SetDefault("doctor.verbose", false)
}

// readAliases returns the aliases section of a config file with its keys
// untouched.
func readAliases(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var file struct {
		Aliases map[string]string `json:"aliases"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("reading aliases: %w", err)
	}
	return file.Aliases, nil
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for sqlimport.yaml or sqlimport.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		// Check for repo boundary (.git file or directory)
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil // No config found, use defaults
}
