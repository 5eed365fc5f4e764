package config

import (
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// BridgeConfig holds configuration for the neobridge server.
type BridgeConfig struct {
	ConfigFile string `yaml:"-"`
	LogLevel   string `yaml:"log_level"`

	// PharoDir is the Pharo installation directory; the VM and images are
	// resolved relative to it.
	PharoDir         string `yaml:"pharo_dir"`
	VMPath           string `yaml:"vm_path"`
	ImageFile        string `yaml:"image_file"`
	ConsoleImageFile string `yaml:"console_image_file"`

	// ConsoleAddr is the host:port of the NeoConsole telnet listener.
	ConsoleAddr string `yaml:"console_addr"`

	RequestTimeout time.Duration `yaml:"-"`
	DialTimeout    time.Duration `yaml:"-"`
	MaxOutputBytes int           `yaml:"max_output_bytes"`
	HistorySize    int           `yaml:"history_size"`

	// HTTPAddr enables the streamable HTTP transport when non-empty;
	// the server speaks stdio otherwise.
	HTTPAddr       string   `yaml:"http_addr"`
	MetricsAddr    string   `yaml:"metrics_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// APIKey guards the HTTP endpoint as a bearer token when set.
	APIKey string `yaml:"api_key"`

	InstanceName string `yaml:"instance_name"`
}

// BindFlags populates the struct with defaults from environment variables and
// binds command line flags so main can call flag.Parse().
func (c *BridgeConfig) BindFlags() {
	home, _ := os.UserHomeDir()
	c.ConfigFile = getEnv("CONFIG_FILE", "")
	c.LogLevel = getEnv("LOG_LEVEL", "info")

	c.PharoDir = getEnv("PHARO_DIR", filepath.Join(home, "pharo"))
	c.VMPath = getEnv("PHARO_VM", "./pharo")
	c.ImageFile = getEnv("PHARO_IMAGE", "Pharo.image")
	c.ConsoleImageFile = getEnv("NEO_CONSOLE_IMAGE", "NeoConsole.image")
	c.ConsoleAddr = getEnv("NEO_CONSOLE_ADDR", "127.0.0.1:4999")

	if v, err := strconv.ParseFloat(getEnv("REQUEST_TIMEOUT", "30"), 64); err == nil {
		c.RequestTimeout = time.Duration(v * float64(time.Second))
	} else {
		c.RequestTimeout = 30 * time.Second
	}
	if v, err := strconv.ParseFloat(getEnv("DIAL_TIMEOUT", "5"), 64); err == nil {
		c.DialTimeout = time.Duration(v * float64(time.Second))
	} else {
		c.DialTimeout = 5 * time.Second
	}
	if v, err := strconv.Atoi(getEnv("MAX_OUTPUT_BYTES", "1048576")); err == nil {
		c.MaxOutputBytes = v
	} else {
		c.MaxOutputBytes = 1 << 20
	}
	if v, err := strconv.Atoi(getEnv("HISTORY_SIZE", "100")); err == nil {
		c.HistorySize = v
	} else {
		c.HistorySize = 100
	}

	hp := getEnv("HTTP_PORT", "")
	if hp != "" && !strings.Contains(hp, ":") {
		hp = ":" + hp
	}
	c.HTTPAddr = hp
	mp := getEnv("METRICS_PORT", "")
	if mp != "" && !strings.Contains(mp, ":") {
		mp = ":" + mp
	}
	c.MetricsAddr = mp
	c.AllowedOrigins = splitComma(getEnv("ALLOWED_ORIGINS", ""))
	c.APIKey = getEnv("API_KEY", "")

	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "neobridge-" + uuid.NewString()[:8]
	}
	c.InstanceName = getEnv("INSTANCE_NAME", host)

	flag.StringVar(&c.ConfigFile, "config", c.ConfigFile, "bridge config file path")
	flag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log verbosity (all, debug, info, warn, error, fatal, none)")
	flag.StringVar(&c.PharoDir, "pharo-dir", c.PharoDir, "Pharo installation directory")
	flag.StringVar(&c.VMPath, "pharo-vm", c.VMPath, "Pharo VM executable, resolved under --pharo-dir when relative")
	flag.StringVar(&c.ImageFile, "pharo-image", c.ImageFile, "image used for one-shot evaluation")
	flag.StringVar(&c.ConsoleImageFile, "console-image", c.ConsoleImageFile, "image hosting the NeoConsole listener")
	flag.StringVar(&c.ConsoleAddr, "console-addr", c.ConsoleAddr, "NeoConsole telnet listener address (host:port)")
	flag.Func("request-timeout", "per-request timeout in seconds", func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		c.RequestTimeout = time.Duration(f * float64(time.Second))
		return nil
	})
	flag.IntVar(&c.MaxOutputBytes, "max-output-bytes", c.MaxOutputBytes, "cap on captured process output")
	flag.IntVar(&c.HistorySize, "history-size", c.HistorySize, "number of session commands kept in history")
	flag.StringVar(&c.HTTPAddr, "http-port", c.HTTPAddr, "streamable HTTP listen address or port (stdio when empty; e.g. 127.0.0.1:8096 or 8096)")
	flag.StringVar(&c.MetricsAddr, "metrics-port", c.MetricsAddr, "Prometheus metrics listen address or port (disabled when empty)")
	flag.StringVar(&c.APIKey, "api-key", c.APIKey, "bearer token required on the HTTP endpoint (open when empty)")
	flag.StringVar(&c.InstanceName, "instance-name", c.InstanceName, "instance name shown in logs")
}

// LoadFile populates the config from a YAML file. Fields already set remain
// unless overwritten by corresponding entries in the file.
func (c *BridgeConfig) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, c)
}

// ResolvedVM returns the VM executable path, anchored at PharoDir when the
// configured path is relative.
func (c *BridgeConfig) ResolvedVM() string {
	if filepath.IsAbs(c.VMPath) {
		return c.VMPath
	}
	return filepath.Join(c.PharoDir, filepath.Clean(c.VMPath))
}

func splitComma(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
