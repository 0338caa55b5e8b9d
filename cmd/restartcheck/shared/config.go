// Package shared provides common configuration for restartcheck.
package shared

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the global configuration for restartcheck
type Config struct {
	Root          string
	Template      string
	Simulator     string
	ConfigName    string
	OutputDir     string
	InputLink     string
	FailurePolicy string
	LogLevel      string
	LogFile       string
	NoColor       bool
	Verbose       bool
}

// Default configuration values
const (
	DefaultRoot          = "../tests/restarts"
	DefaultTemplate      = "../../share/run"
	DefaultSimulator     = "./aether"
	DefaultConfigName    = "aether.json"
	DefaultOutputDir     = "UA/restartOut"
	DefaultInputLink     = "UA/restartIn"
	DefaultFailurePolicy = "warn"
	DefaultDotEnv        = ".env"
)

// EnvPrefix prefixes every environment variable restartcheck reads,
// e.g. RESTARTCHECK_ROOT or RESTARTCHECK_ON_SIM_FAILURE.
const EnvPrefix = "RESTARTCHECK"

// Flag names shared by the flag set and the viper keys.
const (
	FlagRoot          = "root"
	FlagTemplate      = "template"
	FlagSimulator     = "simulator"
	FlagConfigName    = "config-name"
	FlagOutputDir     = "output-dir"
	FlagInputLink     = "input-link"
	FlagFailurePolicy = "on-sim-failure"
	FlagLogLevel      = "log-level"
	FlagLogFile       = "log-file"
	FlagNoColor       = "no-color"
	FlagVerbose       = "verbose"
)

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Root:          DefaultRoot,
		Template:      DefaultTemplate,
		Simulator:     DefaultSimulator,
		ConfigName:    DefaultConfigName,
		OutputDir:     DefaultOutputDir,
		InputLink:     DefaultInputLink,
		FailurePolicy: DefaultFailurePolicy,
	}
}

// RegisterFlags adds the global flags to fs.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Root, FlagRoot, c.Root, "Working root holding run.halves and run.whole")
	fs.StringVar(&c.Template, FlagTemplate, c.Template, "Template run directory, relative to the working root")
	fs.StringVar(&c.Simulator, FlagSimulator, c.Simulator, "Simulator executable, relative to each run directory")
	fs.StringVar(&c.ConfigName, FlagConfigName, c.ConfigName, "Configuration file the simulator reads")
	fs.StringVar(&c.OutputDir, FlagOutputDir, c.OutputDir, "Restart output directory inside a run directory")
	fs.StringVar(&c.InputLink, FlagInputLink, c.InputLink, "Restart input link inside a run directory")
	fs.StringVar(&c.FailurePolicy, FlagFailurePolicy, c.FailurePolicy, "What a non-zero simulator exit does (warn|halt)")
	fs.StringVar(&c.LogLevel, FlagLogLevel, c.LogLevel, "Set log level (debug|info|warn|error) [default: info]")
	fs.StringVar(&c.LogFile, FlagLogFile, c.LogFile, "Write logs to file instead of stderr")
	fs.BoolVar(&c.NoColor, FlagNoColor, c.NoColor, "Disable colored output")
	fs.BoolVarP(&c.Verbose, FlagVerbose, "v", c.Verbose, "Stream simulator output")
}

// Load resolves the configuration with precedence
// defaults < dotenv file < RESTARTCHECK_* environment < command-line flags.
// A missing dotenv file is not an error.
func (c *Config) Load(fs *pflag.FlagSet, dotenvPath string) error {
	v := viper.New()
	defaults := NewConfig()
	v.SetDefault(FlagRoot, defaults.Root)
	v.SetDefault(FlagTemplate, defaults.Template)
	v.SetDefault(FlagSimulator, defaults.Simulator)
	v.SetDefault(FlagConfigName, defaults.ConfigName)
	v.SetDefault(FlagOutputDir, defaults.OutputDir)
	v.SetDefault(FlagInputLink, defaults.InputLink)
	v.SetDefault(FlagFailurePolicy, defaults.FailurePolicy)
	v.SetDefault(FlagLogLevel, "")
	v.SetDefault(FlagLogFile, "")
	v.SetDefault(FlagNoColor, false)
	v.SetDefault(FlagVerbose, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	dotenv, err := readDotEnv(dotenvPath)
	if err != nil {
		return err
	}
	if len(dotenv) > 0 {
		if err := v.MergeConfigMap(dotenv); err != nil {
			return fmt.Errorf("failed to merge %s: %w", dotenvPath, err)
		}
	}

	for _, name := range []string{
		FlagRoot, FlagTemplate, FlagSimulator, FlagConfigName, FlagOutputDir, FlagInputLink,
		FlagFailurePolicy, FlagLogLevel, FlagLogFile, FlagNoColor, FlagVerbose,
	} {
		if flag := fs.Lookup(name); flag != nil {
			if err := v.BindPFlag(name, flag); err != nil {
				return fmt.Errorf("failed to bind %s flag: %w", name, err)
			}
		}
	}

	c.Root = v.GetString(FlagRoot)
	c.Template = v.GetString(FlagTemplate)
	c.Simulator = v.GetString(FlagSimulator)
	c.ConfigName = v.GetString(FlagConfigName)
	c.OutputDir = v.GetString(FlagOutputDir)
	c.InputLink = v.GetString(FlagInputLink)
	c.FailurePolicy = v.GetString(FlagFailurePolicy)
	c.LogLevel = v.GetString(FlagLogLevel)
	c.LogFile = v.GetString(FlagLogFile)
	c.NoColor = v.GetBool(FlagNoColor)
	c.Verbose = v.GetBool(FlagVerbose)

	return c.Validate()
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return errors.New("working root must not be empty")
	}
	if strings.TrimSpace(c.Template) == "" {
		return errors.New("template directory must not be empty")
	}
	if strings.TrimSpace(c.Simulator) == "" {
		return errors.New("simulator command must not be empty")
	}
	if c.ConfigName == "" || strings.ContainsRune(c.ConfigName, filepath.Separator) {
		return fmt.Errorf("config name must be a plain file name, got %q", c.ConfigName)
	}
	if c.OutputDir == "" || c.InputLink == "" {
		return errors.New("output directory and input link must not be empty")
	}
	if filepath.Clean(c.OutputDir) == filepath.Clean(c.InputLink) {
		return fmt.Errorf("output directory and input link must differ, both are %q", c.OutputDir)
	}
	return nil
}

// AbsRoot resolves the working root against the current directory.
func (c *Config) AbsRoot() (string, error) {
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve working root %s: %w", c.Root, err)
	}
	return root, nil
}

// readDotEnv returns the RESTARTCHECK_* entries of a dotenv file keyed by flag name.
func readDotEnv(path string) (map[string]interface{}, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	envMap, err := godotenv.Unmarshal(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	out := make(map[string]interface{})
	prefix := EnvPrefix + "_"
	for key, value := range envMap {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		name := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, prefix), "_", "-"))
		out[name] = value
	}
	return out, nil
}
