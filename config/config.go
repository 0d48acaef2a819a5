package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"minechain/crypto"
)

// Config describes the node daemon: storage location, serving addresses and
// the genesis records seeded into a fresh ledger.
type Config struct {
	RPCAddress string  `toml:"RPCAddress"`
	OpsAddress string  `toml:"OpsAddress"`
	DataDir    string  `toml:"DataDir"`
	Env        string  `toml:"Env"`
	Genesis    Genesis `toml:"Genesis"`
}

// Genesis seeds the ledger the first time the node starts against an empty
// database: the mining admin, the reward token and the two NFT collections
// the incentive programs reference.
type Genesis struct {
	AdminAddress    string     `toml:"AdminAddress"`
	RewardToken     Token      `toml:"RewardToken"`
	StakeCollection Collection `toml:"StakeCollection"`
	BonusCollection Collection `toml:"BonusCollection"`
}

// Token configures a fungible token registration.
type Token struct {
	Symbol        string `toml:"Symbol"`
	Name          string `toml:"Name"`
	Decimals      uint8  `toml:"Decimals"`
	MintAuthority string `toml:"MintAuthority"`
}

// Collection configures an NFT collection registration.
type Collection struct {
	Symbol string `toml:"Symbol"`
	Name   string `toml:"Name"`
	Minter string `toml:"Minter"`
}

// Load reads and validates the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8645"
	}
	if strings.TrimSpace(cfg.OpsAddress) == "" {
		cfg.OpsAddress = ":9464"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./minechain-data"
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "local"
	}
}

// Validate rejects configurations the daemon cannot start with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if strings.TrimSpace(cfg.Genesis.AdminAddress) != "" {
		if _, err := crypto.DecodeAddress(cfg.Genesis.AdminAddress); err != nil {
			return fmt.Errorf("config: invalid AdminAddress: %w", err)
		}
	}
	for _, field := range []struct {
		label string
		value string
	}{
		{"RewardToken.MintAuthority", cfg.Genesis.RewardToken.MintAuthority},
		{"StakeCollection.Minter", cfg.Genesis.StakeCollection.Minter},
		{"BonusCollection.Minter", cfg.Genesis.BonusCollection.Minter},
	} {
		if strings.TrimSpace(field.value) == "" {
			continue
		}
		if _, err := crypto.DecodeAddress(field.value); err != nil {
			return fmt.Errorf("config: invalid %s: %w", field.label, err)
		}
	}
	return nil
}
