package mpv

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EnvLibPath names the environment variable that overrides
// Config.LibraryRoot.
const EnvLibPath = "MPV_LIB_PATH"

// DefaultAsyncTimeoutMS bounds asynchronous waits unless configured.
const DefaultAsyncTimeoutMS = 3000

// Config configures an Mpv instance.
type Config struct {
	// LibraryRoot is searched for libmpv before the system directories.
	LibraryRoot string `yaml:"library_root" toml:"library_root"`

	// LibraryFile, when set, is the exact libmpv file name to load, such
	// as "libmpv-2.dll" or "/opt/mpv/lib/libmpv.so.2".
	LibraryFile string `yaml:"library_file" toml:"library_file"`

	// Libraries overrides how libraries are located, keyed by logical
	// name: "mpv" for libmpv, "c" for the C runtime.
	Libraries map[string]LibrarySpec `yaml:"libraries" toml:"libraries"`

	// EventLoop is "goroutine" (default), "thread" or "wakeup".
	EventLoop LoopKind `yaml:"event_loop" toml:"event_loop"`

	// AsyncTimeoutMS bounds Request.Wait and WaitReply. Zero selects
	// DefaultAsyncTimeoutMS, -1 waits forever.
	AsyncTimeoutMS int `yaml:"async_timeout_ms" toml:"async_timeout_ms"`

	// LogLevel, when set, requests libmpv log messages at that level
	// ("error", "warn", "info", "v", "debug", "trace").
	LogLevel string `yaml:"log_level" toml:"log_level"`

	// Options are set with mpv_set_option_string before initialization.
	Options map[string]string `yaml:"options" toml:"options"`

	// ConfigFile is an mpv.conf loaded before initialization.
	ConfigFile string `yaml:"config_file" toml:"config_file"`

	Logger    *zap.Logger `yaml:"-" toml:"-"`
	Allocator Allocator   `yaml:"-" toml:"-"`
	Resolver  *Resolver   `yaml:"-" toml:"-"`
}

// DefaultConfig returns the configuration New uses for a zero Config.
func DefaultConfig() Config {
	return Config{
		LibraryRoot:    os.Getenv(EnvLibPath),
		EventLoop:      LoopGoroutine,
		AsyncTimeoutMS: DefaultAsyncTimeoutMS,
	}
}

// LoadConfig reads a YAML (.yaml, .yml) or TOML (.toml) file. ${VAR}
// references are expanded from the environment before parsing. Fields
// missing from the file keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("mpv: load config: %w", err)
	}
	expanded := []byte(os.ExpandEnv(string(data)))

	cfg := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(expanded, &cfg)
	case ".toml":
		err = toml.NewDecoder(bytes.NewReader(expanded)).Decode(&cfg)
	default:
		return Config{}, fmt.Errorf("mpv: load config: unsupported file type %q", ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("mpv: parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	switch c.EventLoop {
	case "", LoopGoroutine, LoopThread, LoopWakeup:
	default:
		return fmt.Errorf("mpv: config: unknown event_loop %q", c.EventLoop)
	}
	if c.AsyncTimeoutMS < -1 {
		return fmt.Errorf("mpv: config: async_timeout_ms must be -1 or more, got %d", c.AsyncTimeoutMS)
	}
	if c.LogLevel != "" {
		if _, ok := ParseLogLevel(c.LogLevel); !ok {
			return fmt.Errorf("mpv: config: unknown log_level %q", c.LogLevel)
		}
	}
	for name := range c.Options {
		if name == "" {
			return fmt.Errorf("mpv: config: option name is required")
		}
	}
	for name, spec := range c.Libraries {
		if name == "" {
			return fmt.Errorf("mpv: config: library name is required")
		}
		for _, v := range spec.Versions {
			if v < 0 {
				return fmt.Errorf("mpv: config: library %q: negative version %d", name, v)
			}
		}
	}
	return nil
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.LibraryRoot == "" {
		c.LibraryRoot = def.LibraryRoot
	}
	if c.EventLoop == "" {
		c.EventLoop = def.EventLoop
	}
	if c.AsyncTimeoutMS == 0 {
		c.AsyncTimeoutMS = def.AsyncTimeoutMS
	}
	return c
}

func (c Config) asyncTimeout() time.Duration {
	if c.AsyncTimeoutMS < 0 {
		return NoTimeout
	}
	return time.Duration(c.AsyncTimeoutMS) * time.Millisecond
}

func (c Config) resolverConfig() ResolverConfig {
	libs := make(map[string]LibrarySpec, len(c.Libraries)+1)
	for name, spec := range c.Libraries {
		libs[name] = spec
	}
	if c.LibraryFile != "" {
		spec := libs[libmpvName]
		spec.Names = []string{c.LibraryFile}
		libs[libmpvName] = spec
	}
	return ResolverConfig{
		Root:      c.LibraryRoot,
		Libraries: libs,
		Logger:    c.Logger,
	}
}
