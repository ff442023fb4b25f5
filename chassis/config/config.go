package config

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Handler kinds a task type can be routed to.
const (
	HandlerAdmin = "admin"
	HandlerLua   = "lua"
)

const (
	defaultInterval       = 60
	defaultBackoffInitial = 1
	defaultSourceTimeout  = 30
	defaultMetricsAddr    = ":2112"
)

// TaskType describes one remote task endpoint and how its tasks are handled.
type TaskType struct {
	Name          string `yaml:"name"`
	Path          string `yaml:"path"`
	Handler       string `yaml:"handler"`
	Dedup         bool   `yaml:"dedup"`
	DedupCapacity int    `yaml:"dedupCapacity"`
	DedupTTL      int    `yaml:"dedupTTL"`
}

// AppConfig ...
type AppConfig struct {
	Source struct {
		URL     string `yaml:"url"`
		Timeout int    `yaml:"timeout"`
	}
	Poller struct {
		Interval       int     `yaml:"interval"`
		BackoffInitial int     `yaml:"backoffInitial"`
		BackoffMax     int     `yaml:"backoffMax"`
		ChaosRate      float32 `yaml:"chaosRate"`
		LogLevel       string  `yaml:"loglevel"`
	}
	Executor struct {
		TmpDir     string `yaml:"tmpDir"`
		ScriptsDir string `yaml:"scriptsDir"`
	}
	TaskTypes []TaskType `yaml:"taskTypes"`
	Storage   struct {
		DSN string `yaml:"dsn"`
		// Expiration drops journal rows older than this many seconds; 0 keeps them forever.
		Expiration  int `yaml:"expiration"`
		CleanPeriod int `yaml:"cleanPeriod"`
	}
	AWS struct {
		Region             string `yaml:"region"`
		CredentialsFile    string `yaml:"credentialsFile"`
		CredentialsProfile string `yaml:"credentialsProfile"`
	}
	Notify struct {
		Queue struct {
			Name    string `yaml:"name"`
			URL     string `yaml:"url"`
			Retries int    `yaml:"retries"`
		}
	}
	Metrics struct {
		Addr string `yaml:"addr"`
	}
}

// DefaultTaskTypes are the endpoints polled when the config names none.
func DefaultTaskTypes() []TaskType {
	return []TaskType{
		{Name: "admin", Path: "/get_admin_tasks", Handler: HandlerAdmin},
		{Name: "lua", Path: "/get_lua_tasks", Handler: HandlerLua, Dedup: true},
	}
}

// Read loads .env (if any), then the YAML file named by CFG_PATH.
func Read() (*AppConfig, error) {
	_ = godotenv.Load()
	filename := os.Getenv("CFG_PATH")
	if filename == "" {
		return nil, errors.New("CFG_PATH is not set")
	}
	return ReadFile(filename)
}

// ReadFile parses, defaults and validates the YAML config at filename.
func ReadFile(filename string) (*AppConfig, error) {
	buff, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	cfg := &AppConfig{}
	err = yaml.Unmarshal(buff, cfg)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Source.Timeout <= 0 {
		c.Source.Timeout = defaultSourceTimeout
	}
	if c.Poller.Interval <= 0 {
		c.Poller.Interval = defaultInterval
	}
	if c.Poller.BackoffInitial <= 0 {
		c.Poller.BackoffInitial = defaultBackoffInitial
	}
	if c.Poller.BackoffMax <= 0 {
		c.Poller.BackoffMax = c.Poller.Interval
	}
	if c.Executor.TmpDir == "" {
		c.Executor.TmpDir = os.TempDir()
	}
	if len(c.TaskTypes) == 0 {
		c.TaskTypes = DefaultTaskTypes()
	}
	if c.Storage.CleanPeriod <= 0 {
		c.Storage.CleanPeriod = 60
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = defaultMetricsAddr
	}
}

// Validate ...
func (c *AppConfig) Validate() error {
	if c.Source.URL == "" {
		return errors.New("source.url is required")
	}
	if c.Storage.Expiration < 0 {
		return errors.New("storage.expiration must not be negative")
	}
	if c.Poller.ChaosRate < 0 || c.Poller.ChaosRate > 1 {
		return fmt.Errorf("poller.chaosRate must be within [0, 1], got %v", c.Poller.ChaosRate)
	}
	seen := make(map[string]bool, len(c.TaskTypes))
	for _, tt := range c.TaskTypes {
		if tt.Name == "" {
			return errors.New("task type without a name")
		}
		if seen[tt.Name] {
			return fmt.Errorf("duplicate task type %q", tt.Name)
		}
		seen[tt.Name] = true
		switch tt.Handler {
		case HandlerAdmin, HandlerLua:
		default:
			return fmt.Errorf("task type %q: unknown handler %q", tt.Name, tt.Handler)
		}
		if tt.DedupCapacity < 0 || tt.DedupTTL < 0 {
			return fmt.Errorf("task type %q: negative dedup bounds", tt.Name)
		}
	}
	return nil
}

// Interval between successful poll cycles.
func (c *AppConfig) Interval() time.Duration {
	return time.Duration(c.Poller.Interval) * time.Second
}
