// Package config implements the Config Loader (C10): loading or creating
// config.json in the platform config directory, and validating the
// invariants described in §7 (ConfigInvalid). Grounded on
// original_source/src/config.rs.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	owoerrors "github.com/tosterlolz/Owonero/errors"
)

// Config is the persisted operator configuration, JSON-shaped exactly as
// §6.2 specifies.
type Config struct {
	NodeAddress     string   `json:"node_address"`
	DaemonPort      uint16   `json:"daemon_port"`
	WebPort         uint16   `json:"web_port"`
	WalletPath      string   `json:"wallet_path"`
	MiningThreads   int      `json:"mining_threads"`
	Peers           []string `json:"peers"`
	AutoUpdate      bool     `json:"auto_update"`
	SyncOnStartup   bool     `json:"sync_on_startup"`
	TargetBlockTime int64    `json:"target_block_time"`
	MiningIntensity uint8    `json:"mining_intensity"`
	Pool            bool     `json:"pool"`
}

// Dir returns "<user config dir>/Owonero", creating it if necessary.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	dir := filepath.Join(base, "Owonero")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", owoerrors.New(owoerrors.ConfigInvalid, "creating config directory", err)
	}
	return dir, nil
}

// Path returns the full path to config.json.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Default returns the built-in default configuration.
func Default() Config {
	dir, err := Dir()
	if err != nil {
		dir = "."
	}
	return Config{
		NodeAddress:     "owonero.yabai.buzz:6969",
		DaemonPort:      6969,
		WebPort:         6767,
		WalletPath:      filepath.Join(dir, "wallet.json"),
		MiningThreads:   1,
		Peers:           nil,
		AutoUpdate:      true,
		SyncOnStartup:   true,
		TargetBlockTime: 30,
		MiningIntensity: 100,
		Pool:            false,
	}
}

// Validate enforces §7's ConfigInvalid constraints.
func (c Config) Validate() error {
	if c.DaemonPort == c.WebPort {
		return owoerrors.New(owoerrors.ConfigInvalid, "daemon_port and web_port must be different")
	}
	if c.MiningThreads <= 0 {
		return owoerrors.New(owoerrors.ConfigInvalid, "mining_threads must be at least 1")
	}
	if c.MiningIntensity == 0 || c.MiningIntensity > 100 {
		return owoerrors.New(owoerrors.ConfigInvalid, "mining_intensity must be > 0 and <= 100")
	}
	if parent := filepath.Dir(c.WalletPath); parent != "." && parent != "" {
		if _, err := os.Stat(parent); os.IsNotExist(err) {
			return owoerrors.New(owoerrors.ConfigInvalid, "wallet path directory does not exist: %s", parent)
		}
	}
	return nil
}

// Load reads config.json, writing the defaults if absent.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		def := Default()
		if err := Save(def); err != nil {
			return Config{}, err
		}
		return def, nil
	}
	if err != nil {
		return Config{}, owoerrors.New(owoerrors.ConfigInvalid, "reading config file", err)
	}

	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, owoerrors.New(owoerrors.ConfigInvalid, "parsing config JSON", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Save writes cfg to config.json as pretty JSON.
func Save(cfg Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return owoerrors.New(owoerrors.ConfigInvalid, "serializing config", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return owoerrors.New(owoerrors.ConfigInvalid, "writing config file", err)
	}
	return nil
}
