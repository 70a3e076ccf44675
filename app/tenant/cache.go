package tenant

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	appsync "github.com/jhalves/rss-sync/app/sync"
)

type Cache struct {
	tenantsDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewCache(tenantsDir string) *Cache {
	return &Cache{
		tenantsDir: tenantsDir,
		cache:      make(map[string]*Config),
	}
}

func (c *Cache) Run() error {
	if _, err := os.Stat(c.tenantsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(c.tenantsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		fileName := filepath.Base(file)
		tenantID := fileName[:len(fileName)-4]

		config, err := c.LoadConfig(tenantID)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Tenant settings loaded", "tenant", tenantID,
			"enabled", config.Enabled, "recurrence", config.Recurrence,
			"sources", len(config.SourceURLs()))
	}

	return nil
}

func (c *Cache) LoadConfig(tenantID string) (*Config, error) {
	configFile := filepath.Join(c.tenantsDir, tenantID+".yml")

	config, err := c.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	config.ID = tenantID

	if err := c.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", configFile, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[config.ID] = config

	return config, nil
}

func (c *Cache) GetConfig(tenantID string) (*Config, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	config, ok := c.cache[tenantID]
	if !ok {
		return nil, fmt.Errorf("tenant '%s' not found", tenantID)
	}
	return config, nil
}

func (c *Cache) GetConfigs() map[string]*Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(c.cache))
	for k, v := range c.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (c *Cache) GetEnabledConfigs() map[string]*Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	enabledConfigs := make(map[string]*Config)
	for k, v := range c.cache {
		if v.Enabled {
			enabledConfigs[k] = v
		}
	}
	return enabledConfigs
}

func (c *Cache) GetConfigCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *Cache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if config.Recurrence == "" {
		config.Recurrence = RecurrenceDaily
	}
	if config.ImageStorage == "" {
		config.ImageStorage = ImageHotlinking
	}
	if config.ItemsPerFeed == 0 {
		config.ItemsPerFeed = appsync.DefaultItemsPerFeed
	}

	return &config, nil
}

func (c *Cache) validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	if len(config.SourceURLs()) == 0 && config.Enabled {
		return fmt.Errorf("at least one source URL is required for an enabled tenant")
	}

	switch config.Recurrence {
	case RecurrenceHourly, RecurrenceTwiceDaily, RecurrenceDaily:
	default:
		return fmt.Errorf("invalid recurrence: %s", config.Recurrence)
	}

	switch config.ImageStorage {
	case ImageHotlinking, ImageLocalStorage:
	default:
		return fmt.Errorf("invalid image storage mode: %s", config.ImageStorage)
	}

	if config.MaxAttachmentSize < 0 {
		return fmt.Errorf("max attachment size must be non-negative")
	}
	if config.ItemsPerFeed < 0 {
		return fmt.Errorf("items per feed must be non-negative")
	}

	return nil
}
