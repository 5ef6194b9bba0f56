package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"go-offline-cache/internal/models"
)

var validate = validator.New()

// Default values applied to missing configuration
const (
	DefaultAppName          = "ya-faqih"
	DefaultAPIPrefix        = "/api/"
	DefaultOfflinePage      = "/offline.html"
	DefaultPrayerAPIOrigin  = "https://api.aladhan.com"
	DefaultListenAddr       = "127.0.0.1:8080"
	DefaultBigCacheSizeMB   = 64
	DefaultBigCacheShards   = 64
	DefaultBigCacheLife     = 30 * 24 * time.Hour
	DefaultMaxEntrySize     = 1024 * 1024
	DefaultKeyDBTimeout     = time.Second
	DefaultKeyDBPoolSize    = 10
	DefaultKeyDBIdleTimeout = 10 * time.Second
	DefaultKeyDBScanCount   = 100
	DefaultProbeInterval    = 30 * time.Second
	DefaultProbeTimeout     = 5 * time.Second
	DefaultFetchTimeout     = 30 * time.Second
)

// DefaultPrecache is the asset manifest pre-warmed at install
var DefaultPrecache = []string{
	"/",
	"/manifest.json",
	"/icons/icon-192x192.png",
	"/icons/icon-512x512.png",
	DefaultOfflinePage,
}

// DefaultStaticExtensions are the file extensions treated as static assets
var DefaultStaticExtensions = []string{
	"js", "css", "png", "jpg", "jpeg", "gif", "svg", "woff", "woff2", "ttf", "ico",
}

// DefaultMaxAge holds the freshness window of each request class
var DefaultMaxAge = map[models.RequestClass]time.Duration{
	models.RequestClassStatic:      7 * 24 * time.Hour,
	models.RequestClassPrayerAPI:   24 * time.Hour,
	models.RequestClassInternalAPI: 5 * time.Minute,
	models.RequestClassOther:       time.Hour,
}

// Config represents the main configuration structure
type Config struct {
	App              AppConfig                              `yaml:"app"`
	PrayerAPI        PrayerAPIConfig                        `yaml:"prayer_api"`
	MaxAge           map[models.RequestClass]time.Duration `yaml:"max_age"`
	StaticExtensions []string                               `yaml:"static_extensions" validate:"dive,required,excludes=."`
	Network          NetworkConfig                          `yaml:"network"`
	BigCache         BigCacheConfig                         `yaml:"bigcache"`
	KeyDB            KeyDBConfig                            `yaml:"keydb"`
	MultiCache       MultiCacheConfig                       `yaml:"multi_cache"`
	Server           ServerConfig                           `yaml:"server"`
	Connectivity     ConnectivityConfig                     `yaml:"connectivity"`
}

// AppConfig describes the application the cache works for
type AppConfig struct {
	Name        string   `yaml:"name" validate:"required,excludesall=0x7C"`
	Version     string   `yaml:"version" validate:"required,excludesall=0x7C"`
	Origin      string   `yaml:"origin" validate:"required,url"`
	APIPrefix   string   `yaml:"api_prefix" validate:"required,startswith=/"`
	Precache    []string `yaml:"precache" validate:"dive,required,startswith=/"`
	OfflinePage string   `yaml:"offline_page" validate:"omitempty,startswith=/"`

	// SkipWaitingOnInstall lets a freshly installed version take over
	// without waiting for old clients to go away. Defaults to true.
	SkipWaitingOnInstall *bool `yaml:"skip_waiting_on_install"`
}

// PrayerAPIConfig describes the external prayer-times provider
type PrayerAPIConfig struct {
	Origin string `yaml:"origin" validate:"required,url"`
}

// NetworkConfig configures the outbound HTTP transport
type NetworkConfig struct {
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// BigCacheConfig configures the in-process L1 store
type BigCacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Size         int           `yaml:"size"` // MB
	Shards       int           `yaml:"shards" validate:"omitempty,gt=0"`
	LifeWindow   time.Duration `yaml:"life_window"`
	MaxEntrySize int           `yaml:"max_entry_size"`
}

// KeyDBConfig configures the shared L2 store
type KeyDBConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Connection ConnectionConfig `yaml:"connection"`
	Keepalive  KeepaliveConfig  `yaml:"keepalive"`
	EntryTTL   time.Duration    `yaml:"entry_ttl"` // 0 keeps entries until deleted
	ScanCount  int64            `yaml:"scan_count"`
}

// ConnectionConfig holds KeyDB timeouts
type ConnectionConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	SendTimeout    time.Duration `yaml:"send_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
}

// KeepaliveConfig holds KeyDB pool settings
type KeepaliveConfig struct {
	PoolSize       int           `yaml:"pool_size"`
	MaxIdleTimeout time.Duration `yaml:"max_idle_timeout"`
}

// MultiCacheConfig configures the tiered store
type MultiCacheConfig struct {
	EnablePropagation bool `yaml:"enable_propagation"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	SocketPath string `yaml:"socket_path"`

	// SingleClient declares that exactly one user talks to this instance,
	// so responses to credentialed requests may be stored
	SingleClient bool `yaml:"single_client"`
}

// ConnectivityConfig configures the background connectivity probe
type ConnectivityConfig struct {
	ProbeInterval time.Duration `yaml:"probe_interval"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
	ProbePath     string        `yaml:"probe_path" validate:"omitempty,startswith=/"`
}

// LoadConfig loads configuration from file path
func LoadConfig(configPath string, logger *zap.Logger) (*Config, error) {
	logger.Info("Loading configuration", zap.String("path", configPath))

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return decode(file)
}

// ParseConfig decodes configuration from raw YAML
func ParseConfig(data []byte) (*Config, error) {
	return decode(bytes.NewReader(data))
}

func decode(r io.Reader) (*Config, error) {
	var config Config
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for class, maxAge := range c.MaxAge {
		if maxAge <= 0 {
			return fmt.Errorf("invalid configuration: max_age for %s must be positive", class)
		}
	}
	return nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = DefaultAppName
	}
	if c.App.APIPrefix == "" {
		c.App.APIPrefix = DefaultAPIPrefix
	}
	if c.App.Precache == nil {
		c.App.Precache = append([]string(nil), DefaultPrecache...)
	}
	if c.App.OfflinePage == "" {
		c.App.OfflinePage = DefaultOfflinePage
	}
	if c.App.SkipWaitingOnInstall == nil {
		skip := true
		c.App.SkipWaitingOnInstall = &skip
	}
	c.App.Origin = strings.TrimRight(c.App.Origin, "/")

	if c.PrayerAPI.Origin == "" {
		c.PrayerAPI.Origin = DefaultPrayerAPIOrigin
	}
	c.PrayerAPI.Origin = strings.TrimRight(c.PrayerAPI.Origin, "/")

	if c.MaxAge == nil {
		c.MaxAge = make(map[models.RequestClass]time.Duration, len(DefaultMaxAge))
	}
	for class, maxAge := range DefaultMaxAge {
		if _, ok := c.MaxAge[class]; !ok {
			c.MaxAge[class] = maxAge
		}
	}

	if len(c.StaticExtensions) == 0 {
		c.StaticExtensions = append([]string(nil), DefaultStaticExtensions...)
	}
	for i, ext := range c.StaticExtensions {
		c.StaticExtensions[i] = strings.ToLower(strings.TrimPrefix(ext, "."))
	}

	if c.Network.FetchTimeout == 0 {
		c.Network.FetchTimeout = DefaultFetchTimeout
	}

	// at least one tier must hold entries
	if !c.BigCache.Enabled && !c.KeyDB.Enabled {
		c.BigCache.Enabled = true
	}
	c.BigCache.ApplyDefaults()
	c.KeyDB.ApplyDefaults()

	if c.Server.ListenAddr == "" && c.Server.SocketPath == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}

	if c.Connectivity.ProbeInterval == 0 {
		c.Connectivity.ProbeInterval = DefaultProbeInterval
	}
	if c.Connectivity.ProbeTimeout == 0 {
		c.Connectivity.ProbeTimeout = DefaultProbeTimeout
	}
	if c.Connectivity.ProbePath == "" {
		c.Connectivity.ProbePath = "/"
	}
}

// ApplyDefaults fills in missing BigCache settings
func (b *BigCacheConfig) ApplyDefaults() {
	if b.Size == 0 {
		b.Size = DefaultBigCacheSizeMB
	}
	if b.Shards == 0 {
		b.Shards = DefaultBigCacheShards
	}
	if b.LifeWindow == 0 {
		b.LifeWindow = DefaultBigCacheLife
	}
	if b.MaxEntrySize == 0 {
		b.MaxEntrySize = DefaultMaxEntrySize
	}
}

// ApplyDefaults fills in missing KeyDB settings
func (k *KeyDBConfig) ApplyDefaults() {
	if k.Connection.ConnectTimeout == 0 {
		k.Connection.ConnectTimeout = DefaultKeyDBTimeout
	}
	if k.Connection.SendTimeout == 0 {
		k.Connection.SendTimeout = DefaultKeyDBTimeout
	}
	if k.Connection.ReadTimeout == 0 {
		k.Connection.ReadTimeout = DefaultKeyDBTimeout
	}
	if k.Keepalive.PoolSize == 0 {
		k.Keepalive.PoolSize = DefaultKeyDBPoolSize
	}
	if k.Keepalive.MaxIdleTimeout == 0 {
		k.Keepalive.MaxIdleTimeout = DefaultKeyDBIdleTimeout
	}
	if k.ScanCount == 0 {
		k.ScanCount = DefaultKeyDBScanCount
	}
}

// AppOrigin returns the parsed application origin
func (c *Config) AppOrigin() (*url.URL, error) {
	return parseOrigin(c.App.Origin)
}

// PrayerAPIOrigin returns the parsed prayer-times API origin
func (c *Config) PrayerAPIOrigin() (*url.URL, error) {
	return parseOrigin(c.PrayerAPI.Origin)
}

// SkipWaitingOnInstall reports whether installed versions activate immediately
func (c *Config) SkipWaitingOnInstall() bool {
	return c.App.SkipWaitingOnInstall == nil || *c.App.SkipWaitingOnInstall
}

// Namespaces returns the cache namespace set of the configured version
func (c *Config) Namespaces() models.Namespaces {
	return models.NewNamespaces(c.App.Name, c.App.Version)
}

func parseOrigin(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid origin %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid origin %q: scheme and host are required", raw)
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host}, nil
}
