package config

import (
	"bytes"
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/dex-client/internal/constants"
	"github.com/quantumauth-io/dex-client/internal/contracts"
	"github.com/quantumauth-io/dex-client/internal/tokens"
	"github.com/spf13/viper"
)

//go:embed config.yaml
var EmbeddedConfigYAML []byte

const envPrefix = "DEX"

type ClientSettings struct {
	LocalHost      string
	Port           string
	WalletPath     string
	AllowedOrigins []string
}

type ChainConfig struct {
	RPCURL       string
	ProbeTimeout time.Duration
	ReceiptPoll  time.Duration
}

type DeploymentConfig struct {
	Aggregator      string
	PositionManager string
	Quoter          string
	WrappedNative   string
}

type QuoteConfig struct {
	FeeTier  uint32
	Debounce time.Duration
}

type TokenConfig struct {
	Symbol   string
	Name     string
	Address  string
	Decimals uint8
	LogoURI  string
}

type AssistantConfig struct {
	APIKey string
}

type Config struct {
	ClientSettings ClientSettings
	Chain          ChainConfig
	Deployment     DeploymentConfig
	Quote          QuoteConfig
	Tokens         []TokenConfig
	Assistant      AssistantConfig
}

func searchPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		filepath.Join(home, ".config", constants.AppName),
		".",
	}
}

// Load reads the embedded defaults, merges the first config.yaml found on
// the search paths over them, then applies DEX_* environment overrides.
func Load() (*Config, error) {
	return load(searchPaths())
}

func load(paths []string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(EmbeddedConfigYAML)); err != nil {
		return nil, errors.Wrap(err, "read embedded config")
	}

	v.SetConfigName(constants.ConfigFile)
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "merge user config")
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("Assistant.APIKey", envPrefix+"_ASSISTANT_API_KEY"); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize fills defaults and checks every address.
func (c *Config) Normalize() error {
	if strings.TrimSpace(c.ClientSettings.LocalHost) == "" {
		c.ClientSettings.LocalHost = "127.0.0.1"
	}
	if strings.TrimSpace(c.ClientSettings.Port) == "" {
		return errors.New("ClientSettings.Port is empty")
	}
	if strings.TrimSpace(c.Chain.RPCURL) == "" {
		return errors.New("Chain.RPCURL is empty")
	}
	if c.Chain.ProbeTimeout <= 0 {
		c.Chain.ProbeTimeout = 30 * time.Second
	}
	if c.Chain.ReceiptPoll <= 0 {
		c.Chain.ReceiptPoll = constants.ReceiptPollInterval
	}
	if c.Quote.FeeTier == 0 {
		c.Quote.FeeTier = constants.DefaultFeeTier
	}
	// fee tiers are uint24 on chain
	if c.Quote.FeeTier >= 1<<24 {
		return errors.Newf("Quote.FeeTier %d does not fit in 24 bits", c.Quote.FeeTier)
	}
	if c.Quote.Debounce <= 0 {
		c.Quote.Debounce = constants.QuoteDebounce
	}

	if _, err := c.ContractDeployment(); err != nil {
		return err
	}
	if _, err := c.TokenList(); err != nil {
		return err
	}
	return nil
}

// ContractDeployment converts the address bundle.
func (c *Config) ContractDeployment() (contracts.Deployment, error) {
	var d contracts.Deployment
	fields := []struct {
		name string
		raw  string
		dst  *common.Address
	}{
		{"Aggregator", c.Deployment.Aggregator, &d.Aggregator},
		{"PositionManager", c.Deployment.PositionManager, &d.PositionManager},
		{"Quoter", c.Deployment.Quoter, &d.Quoter},
		{"WrappedNative", c.Deployment.WrappedNative, &d.WrappedNative},
	}
	for _, f := range fields {
		addr, err := parseAddress(f.raw)
		if err != nil {
			return d, errors.Wrapf(err, "Deployment.%s", f.name)
		}
		*f.dst = addr
	}
	return d, d.Validate()
}

// TokenList converts the configured tokens. Registry rules (one native
// entry, unique symbols) are enforced by tokens.NewRegistry.
func (c *Config) TokenList() ([]tokens.Token, error) {
	if len(c.Tokens) == 0 {
		return nil, errors.New("Tokens is empty")
	}
	out := make([]tokens.Token, 0, len(c.Tokens))
	for i, t := range c.Tokens {
		addr, err := parseAddress(t.Address)
		if err != nil {
			return nil, errors.Wrapf(err, "Tokens[%d] (%s)", i, t.Symbol)
		}
		out = append(out, tokens.Token{
			Symbol:   strings.TrimSpace(t.Symbol),
			Name:     strings.TrimSpace(t.Name),
			Address:  addr,
			Decimals: t.Decimals,
			LogoURI:  strings.TrimSpace(t.LogoURI),
		})
	}
	return out, nil
}

func parseAddress(raw string) (common.Address, error) {
	a := strings.TrimSpace(raw)
	if !strings.HasPrefix(a, "0x") && !strings.HasPrefix(a, "0X") {
		a = "0x" + a
	}
	if !common.IsHexAddress(a) {
		return common.Address{}, errors.Newf("invalid address %q", raw)
	}
	return common.HexToAddress(a), nil
}
