package config

import (
	"os"
	"path/filepath"
	"testing"

	"minechain/crypto"
)

func testBech32(b byte) string {
	raw := make([]byte, 20)
	raw[19] = b
	return crypto.MustNewAddress(crypto.MinePrefix, raw).String()
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != ":8645" {
		t.Fatalf("RPCAddress = %q, want :8645", cfg.RPCAddress)
	}
	if cfg.OpsAddress != ":9464" {
		t.Fatalf("OpsAddress = %q, want :9464", cfg.OpsAddress)
	}
	if cfg.DataDir != "./minechain-data" {
		t.Fatalf("DataDir = %q, want ./minechain-data", cfg.DataDir)
	}
	if cfg.Env != "local" {
		t.Fatalf("Env = %q, want local", cfg.Env)
	}
}

func TestLoadFullConfig(t *testing.T) {
	admin := testBech32(0x01)
	authority := testBech32(0x02)
	path := writeConfig(t, `
RPCAddress = ":9000"
DataDir = "/var/lib/minechain"
Env = "prod"

[Genesis]
AdminAddress = "`+admin+`"

[Genesis.RewardToken]
Symbol = "MCR"
Name = "Mine Credits"
Decimals = 18
MintAuthority = "`+authority+`"

[Genesis.StakeCollection]
Symbol = "MINERS"
Name = "Miners"
Minter = "`+authority+`"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != ":9000" || cfg.DataDir != "/var/lib/minechain" || cfg.Env != "prod" {
		t.Fatalf("explicit values overridden: %+v", cfg)
	}
	if cfg.Genesis.AdminAddress != admin {
		t.Fatalf("AdminAddress = %q, want %q", cfg.Genesis.AdminAddress, admin)
	}
	if cfg.Genesis.RewardToken.Symbol != "MCR" || cfg.Genesis.RewardToken.Decimals != 18 {
		t.Fatalf("reward token = %+v", cfg.Genesis.RewardToken)
	}
	if cfg.Genesis.StakeCollection.Minter != authority {
		t.Fatalf("stake collection minter = %q, want %q", cfg.Genesis.StakeCollection.Minter, authority)
	}
}

func TestLoadRejectsMalformedAddresses(t *testing.T) {
	path := writeConfig(t, `
[Genesis]
AdminAddress = "not-a-bech32-address"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for malformed admin address")
	}

	path = writeConfig(t, `
[Genesis.RewardToken]
Symbol = "MCR"
MintAuthority = "mine1invalid"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for malformed mint authority")
	}
}
