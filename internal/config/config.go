// Package config manages file-based configuration (YAML or TOML), environment
// overrides, CLI flags and the list of mounted disk folders.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/CageChen/codespace/internal/logging"
	"github.com/CageChen/codespace/internal/store"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "codespace"

// Folder is a disk folder imported into the workspace under /<Alias>
type Folder struct {
	Path    string   `yaml:"path" toml:"path" json:"path"`
	Alias   string   `yaml:"alias" toml:"alias" json:"alias"`
	GitRef  string   `yaml:"git_ref,omitempty" toml:"git_ref,omitempty" json:"git_ref,omitempty"`
	SubPath string   `yaml:"sub_path,omitempty" toml:"sub_path,omitempty" json:"sub_path,omitempty"`
	Exclude []string `yaml:"exclude,omitempty" toml:"exclude,omitempty" json:"exclude,omitempty"`
}

// Terminal configures the browser terminal sessions.
type Terminal struct {
	User       string   `yaml:"user" toml:"user" json:"user"`
	Greeting   []string `yaml:"greeting" toml:"greeting" json:"greeting"`
	QueueDepth int      `yaml:"queue_depth" toml:"queue_depth" json:"queue_depth"`
}

// Config holds all configuration options for codespace
type Config struct {
	Host  string `yaml:"host" toml:"host"`
	Port  int    `yaml:"port" toml:"port"`
	Theme string `yaml:"theme" toml:"theme"`
	Watch bool   `yaml:"watch" toml:"watch"`
	Open  bool   `yaml:"open" toml:"open"`

	// Seed is a YAML tree replacing the built-in example workspace.
	Seed        string `yaml:"seed,omitempty" toml:"seed,omitempty"`
	CurrentFile string `yaml:"current_file" toml:"current_file"`

	Folders    []Folder `yaml:"folders,omitempty" toml:"folders,omitempty" json:"folders"`
	Exclude    []string `yaml:"exclude" toml:"exclude"`
	Extensions []string `yaml:"extensions" toml:"extensions"`

	Terminal Terminal       `yaml:"terminal" toml:"terminal"`
	Log      logging.Config `yaml:"log" toml:"log"`

	// Internal: path to config file for saving
	configPath string
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Host:        "127.0.0.1",
		Port:        8080,
		Theme:       "dark",
		Watch:       true,
		CurrentFile: store.DefaultCurrentFile,
		Exclude:     []string{"node_modules", ".git", ".svn"},
		Extensions:  []string{".md", ".markdown"},
		Terminal: Terminal{
			User: "cli-agent",
			Greeting: []string{
				"Welcome to CLI Coding Agent!",
				"Type 'help' for available commands.",
			},
			QueueDepth: 16,
		},
		Log: logging.DefaultConfig(),
	}
}

// GetConfigDir returns the config directory path
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/codespace"
	}
	return filepath.Join(home, ".config", "codespace")
}

// GetConfigPath returns the full path to the global config file
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// Load builds the configuration: defaults, then the config file, then
// CODESPACE_* environment variables, then explicitly set flags.
func Load(args []string) (*Config, error) {
	cfg := DefaultConfig()

	fs := flag.NewFlagSet("codespace", flag.ContinueOnError)
	configFile := fs.String("config", "", "Configuration file path (.yaml or .toml)")
	dir := fs.String("path", "", "Mount a single disk folder, replacing configured folders")
	host := fs.String("host", "", "HTTP listen host")
	port := fs.Int("port", 0, "HTTP server port")
	theme := fs.String("theme", "", "Editor theme (light/dark)")
	watch := fs.Bool("watch", true, "Watch mounted folders for changes")
	open := fs.Bool("open", false, "Open browser on startup")
	seed := fs.String("seed", "", "YAML file with the initial workspace tree")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dev := fs.Bool("dev", false, "Human-readable development logging")
	fs.StringVar(dir, "p", "", "Mount a single disk folder (shorthand)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfgPath := *configFile
	if cfgPath == "" {
		cfgPath = findConfigFile()
	}
	if cfgPath != "" {
		if err := cfg.loadFromFile(cfgPath); err != nil {
			// A missing default file is fine, an explicit one is not.
			if *configFile != "" || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
			}
		}
		cfg.configPath = cfgPath
	} else {
		cfg.configPath = GetConfigPath()
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if *dir != "" {
		cfg.Folders = nil
		if err := cfg.AddFolder(*dir, "", "", "", nil); err != nil {
			return nil, err
		}
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *theme != "" {
		cfg.Theme = *theme
	}
	if *seed != "" {
		cfg.Seed = *seed
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if set["watch"] {
		cfg.Watch = *watch
	}
	if set["open"] {
		cfg.Open = *open
	}
	if set["dev"] {
		cfg.Log.Development = *dev
	}

	cfg.resolveFolders()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	for _, candidate := range []string{GetConfigPath(), "codespace.yaml", "codespace.toml"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// envOverrides mirrors the overridable settings; nil means unset. Keys are
// derived from field names (CODESPACE_QUEUE_DEPTH) so that unprefixed
// variables such as USER or PORT are never consulted.
type envOverrides struct {
	Host       *string
	Port       *int
	Theme      *string
	Watch      *bool
	Open       *bool
	Seed       *string
	User       *string
	QueueDepth *int    `split_words:"true"`
	LogLevel   *string `split_words:"true"`
	LogDev     *bool   `split_words:"true"`
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to load environment: %w", err)
	}

	if env.Host != nil {
		c.Host = *env.Host
	}
	if env.Port != nil {
		c.Port = *env.Port
	}
	if env.Theme != nil {
		c.Theme = *env.Theme
	}
	if env.Watch != nil {
		c.Watch = *env.Watch
	}
	if env.Open != nil {
		c.Open = *env.Open
	}
	if env.Seed != nil {
		c.Seed = *env.Seed
	}
	if env.User != nil {
		c.Terminal.User = *env.User
	}
	if env.QueueDepth != nil {
		c.Terminal.QueueDepth = *env.QueueDepth
	}
	if env.LogLevel != nil {
		c.Log.Level = *env.LogLevel
	}
	if env.LogDev != nil {
		c.Log.Development = *env.LogDev
	}
	return nil
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Terminal.QueueDepth < 0 {
		return fmt.Errorf("invalid terminal queue depth %d", c.Terminal.QueueDepth)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	for _, p := range append(append([]string{}, c.Exclude...), c.folderExcludes()...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return nil
}

func (c *Config) folderExcludes() []string {
	var out []string
	for _, f := range c.Folders {
		out = append(out, f.Exclude...)
	}
	return out
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// resolveFolders makes folder paths absolute and fills missing aliases.
func (c *Config) resolveFolders() {
	for i := range c.Folders {
		if abs, err := filepath.Abs(c.Folders[i].Path); err == nil {
			c.Folders[i].Path = abs
		}
		if c.Folders[i].Alias == "" {
			c.Folders[i].Alias = defaultAlias(c.Folders[i].Path, c.Folders[i].GitRef)
		}
	}
}

func defaultAlias(dir, gitRef string) string {
	alias := filepath.Base(dir)
	if gitRef != "" {
		alias += "@" + gitRef
	}
	return alias
}

func isTOML(p string) bool {
	return strings.EqualFold(filepath.Ext(p), ".toml")
}

func (c *Config) loadFromFile(p string) error {
	data, err := os.ReadFile(p)
	if err != nil {
		return err
	}
	if isTOML(p) {
		return toml.Unmarshal(data, c)
	}
	return yaml.Unmarshal(data, c)
}

// savedConfig is the persisted subset of Config.
type savedConfig struct {
	Host        string         `yaml:"host" toml:"host"`
	Port        int            `yaml:"port" toml:"port"`
	Theme       string         `yaml:"theme" toml:"theme"`
	Watch       bool           `yaml:"watch" toml:"watch"`
	Open        bool           `yaml:"open" toml:"open"`
	Seed        string         `yaml:"seed,omitempty" toml:"seed,omitempty"`
	CurrentFile string         `yaml:"current_file" toml:"current_file"`
	Folders     []Folder       `yaml:"folders,omitempty" toml:"folders,omitempty"`
	Exclude     []string       `yaml:"exclude" toml:"exclude"`
	Extensions  []string       `yaml:"extensions" toml:"extensions"`
	Terminal    Terminal       `yaml:"terminal" toml:"terminal"`
	Log         logging.Config `yaml:"log" toml:"log"`
}

// Save writes the configuration back to its file, in the file's format.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0755); err != nil {
		return err
	}

	s := savedConfig{
		Host:        c.Host,
		Port:        c.Port,
		Theme:       c.Theme,
		Watch:       c.Watch,
		Open:        c.Open,
		Seed:        c.Seed,
		CurrentFile: c.CurrentFile,
		Folders:     c.Folders,
		Exclude:     c.Exclude,
		Extensions:  c.Extensions,
		Terminal:    c.Terminal,
		Log:         c.Log,
	}

	var (
		data []byte
		err  error
	)
	if isTOML(c.configPath) {
		data, err = toml.Marshal(s)
	} else {
		data, err = yaml.Marshal(s)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(c.configPath, data, 0644)
}

// SetConfigFilePath sets where Save writes.
func (c *Config) SetConfigFilePath(p string) {
	c.configPath = p
}

// GetConfigFilePath returns the path to the config file
func (c *Config) GetConfigFilePath() string {
	return c.configPath
}

// AddFolder adds a folder mount. Adding an existing path, ref and sub
// path again is a no-op; a duplicate alias is an error.
func (c *Config) AddFolder(dir, alias, gitRef, subPath string, exclude []string) error {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if alias == "" {
		alias = defaultAlias(absPath, gitRef)
	}
	if strings.ContainsRune(alias, '/') || alias == "." || alias == ".." {
		return fmt.Errorf("invalid alias %q", alias)
	}

	for _, f := range c.Folders {
		if f.Path == absPath && f.GitRef == gitRef && f.SubPath == subPath {
			return nil
		}
		if f.Alias == alias {
			return fmt.Errorf("alias %q already in use", alias)
		}
	}

	c.Folders = append(c.Folders, Folder{
		Path:    absPath,
		Alias:   alias,
		GitRef:  gitRef,
		SubPath: subPath,
		Exclude: exclude,
	})
	return nil
}

// RemoveFolderByIndex removes a folder by its index and returns it.
func (c *Config) RemoveFolderByIndex(index int) (Folder, bool) {
	if index < 0 || index >= len(c.Folders) {
		return Folder{}, false
	}
	f := c.Folders[index]
	c.Folders = append(c.Folders[:index], c.Folders[index+1:]...)
	return f, true
}

// IsExcluded reports whether a slash-separated path relative to a mounted
// folder matches a global or folder exclude. Patterns are doublestar
// globs matched against the whole path and its last element; a plain
// name also excludes everything beneath a directory of that name.
func (c *Config) IsExcluded(relPath string, folderExcludes []string) bool {
	relPath = strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(relPath)), "/")
	if relPath == "" {
		return false
	}
	segments := strings.Split(relPath, "/")

	for _, patterns := range [][]string{c.Exclude, folderExcludes} {
		for _, pattern := range patterns {
			if ok, _ := doublestar.Match(pattern, relPath); ok {
				return true
			}
			for _, seg := range segments {
				if ok, _ := doublestar.Match(pattern, seg); ok {
					return true
				}
			}
			clean := strings.Trim(pattern, "/")
			if relPath == clean || strings.HasPrefix(relPath, clean+"/") {
				return true
			}
		}
	}
	return false
}

// IsMarkdownFile checks if a file has a markdown extension
func (c *Config) IsMarkdownFile(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	for _, e := range c.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
