package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"dmcchain/core/types"
)

// Config is the daemon configuration loaded from TOML.
type Config struct {
	ListenAddress      string `toml:"ListenAddress"`
	DataDir            string `toml:"DataDir"`
	Environment        string `toml:"Environment"`
	AdminAddress       string `toml:"AdminAddress"`
	RecoveryAddress    string `toml:"RecoveryAddress"`
	PriceWindowSeconds int64  `toml:"PriceWindowSeconds"`

	// AuthTokens maps bearer tokens to the hex address each token may act
	// for. The token mapped to the admin address unlocks administrative
	// operations.
	AuthTokens map[string]string `toml:"AuthTokens"`

	// Params overrides built-in parameter defaults at startup.
	Params map[string]uint64 `toml:"Params"`
}

// Load reads the configuration at path. A missing file is created with
// defaults so a fresh deployment starts from a working template.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalise(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalise fills defaults and validates the address fields.
func (c *Config) Normalise() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8080"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./dmc-data"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "local"
	}
	if c.PriceWindowSeconds < 0 {
		return fmt.Errorf("config: PriceWindowSeconds must not be negative")
	}
	if c.AuthTokens == nil {
		c.AuthTokens = map[string]string{}
	}
	if c.Params == nil {
		c.Params = map[string]uint64{}
	}
	if _, err := c.Admin(); err != nil {
		return err
	}
	if _, err := c.Recovery(); err != nil {
		return err
	}
	for token, addr := range c.AuthTokens {
		if strings.TrimSpace(token) == "" {
			return fmt.Errorf("config: empty bearer token")
		}
		if _, err := types.ParseAddress(addr); err != nil {
			return fmt.Errorf("config: auth token principal %q: %w", addr, err)
		}
	}
	return nil
}

// Admin parses the configured administrator address.
func (c *Config) Admin() (types.Address, error) {
	addr, err := types.ParseAddress(c.AdminAddress)
	if err != nil {
		return types.Address{}, fmt.Errorf("config: AdminAddress: %w", err)
	}
	return addr, nil
}

// Recovery parses the configured recovery address.
func (c *Config) Recovery() (types.Address, error) {
	addr, err := types.ParseAddress(c.RecoveryAddress)
	if err != nil {
		return types.Address{}, fmt.Errorf("config: RecoveryAddress: %w", err)
	}
	return addr, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress:   ":8080",
		DataDir:         "./dmc-data",
		Environment:     "local",
		AdminAddress:    zeroAddressHex,
		RecoveryAddress: zeroAddressHex,
		AuthTokens:      map[string]string{},
		Params:          map[string]uint64{},
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

const zeroAddressHex = "0x0000000000000000000000000000000000000000"

func persist(path string, cfg *Config) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
