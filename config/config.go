// Package config holds the parameters of the mech interaction.
package config

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Fantom-foundation/mech-interact-abci/behaviour"
	"github.com/Fantom-foundation/mech-interact-abci/ranking"
)

// DefaultPriorityMechServiceID is used when the marketplace config leaves it unset.
const DefaultPriorityMechServiceID = 975

// MarketplaceConfig of the mech marketplace.
type MarketplaceConfig struct {
	MechMarketplaceAddress             common.Address
	PriorityMechAddress                common.Address
	PriorityMechStakingInstanceAddress common.Address
	PriorityMechServiceID              uint64
	RequesterStakingInstanceAddress    common.Address
	// ResponseTimeout in seconds.
	ResponseTimeout uint64
}

// Config of the mech interaction.
type Config struct {
	MultisendAddress   common.Address
	MultisendBatchSize int

	MechContractAddress common.Address
	// MechRequestPrice overrides the price read from the mech, if set.
	MechRequestPrice *big.Int `toml:",omitempty"`
	MechChainID      string
	// MechWrappedNativeTokenAddress may be zero, wrapped tokens are ignored then.
	MechWrappedNativeTokenAddress common.Address
	// MechInteractionSleepTime in seconds.
	MechInteractionSleepTime uint64

	IPFSAddress string
	SubgraphURL string

	UseMechMarketplace bool
	Marketplace        MarketplaceConfig

	AgentRegistryAddress common.Address
	OnChainServiceID     uint64
	UseACNForDelivers    bool

	NVMBalanceTrackerAddress      common.Address
	DIDRegistryAddress            common.Address
	AgreementStoreManagerAddress  common.Address
	LockPaymentConditionAddress   common.Address
	TransferNFTConditionAddress   common.Address
	EscrowPaymentConditionAddress common.Address
	// NVM overrides the known plans per chain id.
	NVM Resolver `toml:",omitempty"`

	IrrelevantTools []string
	IgnoredMechs    []string

	// ToolsCacheSize is the number of mech tool lists kept between rounds.
	ToolsCacheSize int

	Retries behaviour.RetriesConfig
	Ranking ranking.Config

	// RPC endpoints per chain id.
	RPC map[string]string
}

// DefaultConfig for livenet.
func DefaultConfig() Config {
	return Config{
		MultisendAddress:         common.HexToAddress("0xA238CBeb142c10Ef7Ad8442C6D1f9E89e07e7761"),
		MultisendBatchSize:       1,
		MechContractAddress:      common.HexToAddress("0x77af31De935740567Cf4fF1986D04B2c964A786a"),
		MechChainID:              "gnosis",
		MechInteractionSleepTime: 10,
		IPFSAddress:              "https://gateway.autonolas.tech/ipfs/",
		Marketplace: MarketplaceConfig{
			PriorityMechServiceID: DefaultPriorityMechServiceID,
			ResponseTimeout:       300,
		},
		IrrelevantTools: []string{
			"openai-text-davinci-002",
			"openai-text-davinci-003",
			"openai-gpt-3.5-turbo",
			"openai-gpt-4",
			"stabilityai-stable-diffusion-v1-5",
			"stabilityai-stable-diffusion-xl-beta-v2-2-2",
			"stabilityai-stable-diffusion-512-v2-1",
			"stabilityai-stable-diffusion-768-v2-1",
		},
		ToolsCacheSize: 256,
		Retries:        behaviour.DefaultRetriesConfig(),
		Ranking:        ranking.DefaultConfig(),
		RPC:            map[string]string{},
	}
}

// LiteConfig is for tests.
func LiteConfig() Config {
	cfg := DefaultConfig()
	cfg.MechInteractionSleepTime = 1
	cfg.IPFSAddress = "http://localhost:5001/ipfs/"
	cfg.ToolsCacheSize = 8
	cfg.Retries = behaviour.RetriesConfig{
		MaxRetries:    2,
		BackoffFactor: 1,
	}
	return cfg
}

// SleepTime is the pause between balance checks.
func (c *Config) SleepTime() time.Duration {
	return time.Duration(c.MechInteractionSleepTime) * time.Second
}

// IPFSLink returns the gateway address, always ending with a slash.
func (c *Config) IPFSLink() string {
	if strings.HasSuffix(c.IPFSAddress, "/") {
		return c.IPFSAddress
	}
	return c.IPFSAddress + "/"
}

// IsIrrelevant reports whether a tool is to be ignored.
func (c *Config) IsIrrelevant(tool string) bool {
	for _, t := range c.IrrelevantTools {
		if t == tool {
			return true
		}
	}
	return false
}

// Resolver returns the Nevermined plans, the known ones overridden by NVM.
func (c *Config) Resolver() Resolver {
	r := DefaultResolver()
	for chain, plan := range c.NVM {
		r[chain] = plan
	}
	return r
}

// NVMConfig returns the plan of the mech chain.
func (c *Config) NVMConfig() (NVMConfig, error) {
	return c.Resolver().Resolve(c.MechChainID)
}

// Problems lists every inconsistency of a config.
type Problems []string

func (pp Problems) Error() string {
	return fmt.Sprintf("invalid config: %s", strings.Join(pp, "; "))
}

// Validate checks the config once, before the app starts.
func (c *Config) Validate() error {
	var pp Problems
	add := func(format string, args ...interface{}) {
		pp = append(pp, fmt.Sprintf(format, args...))
	}
	zero := common.Address{}

	if c.MultisendAddress == zero {
		add("multisend address not specified")
	}
	if c.MultisendBatchSize <= 0 {
		add("multisend batch size must be positive")
	}
	if c.MechInteractionSleepTime == 0 {
		add("mech interaction sleep time must be positive")
	}
	if c.IPFSAddress == "" {
		add("ipfs address not specified")
	}
	if c.MechRequestPrice != nil && c.MechRequestPrice.Sign() < 0 {
		add("mech request price must not be negative")
	}
	if c.UseMechMarketplace {
		m := &c.Marketplace
		if m.MechMarketplaceAddress == zero {
			add("mech marketplace address is required when the marketplace is used")
		}
		if m.PriorityMechAddress == zero {
			add("priority mech address is required when the marketplace is used")
		}
		if m.ResponseTimeout == 0 {
			add("response timeout must be positive")
		}
		if c.MechContractAddress != m.PriorityMechAddress {
			add("the mech contract address must be the same as the priority mech address when using the marketplace")
		}
		if c.SubgraphURL == "" {
			add("subgraph url is required when the marketplace is used")
		}
	} else if c.MechContractAddress == zero {
		add("mech contract address not specified")
	}
	if c.Retries.MaxRetries < 0 {
		add("max retries must not be negative")
	}
	if c.Retries.BackoffFactor < 1 {
		add("backoff factor must be at least 1")
	}
	if w := c.Ranking.RateWeight + c.Ranking.LivenessWeight + c.Ranking.LaplaceWeight; w <= 0 {
		add("ranking weights must not all be zero")
	}
	if c.Ranking.HalfLife <= 0 {
		add("ranking half life must be positive")
	}
	if _, err := c.NVMConfig(); err != nil {
		add("%v", err)
	}
	chains := make([]string, 0, len(c.NVM))
	for chain := range c.NVM {
		chains = append(chains, chain)
	}
	sort.Strings(chains)
	for _, chain := range chains {
		plan := c.NVM[chain]
		if plan.PlanFeeNVM == nil || plan.PlanFeeNVM.Sign() < 0 {
			add("nvm plan of %s: fee not specified", chain)
		}
		if plan.PlanPriceMech == nil || plan.PlanPriceMech.Sign() < 0 {
			add("nvm plan of %s: mech price not specified", chain)
		}
	}

	if len(pp) != 0 {
		return pp
	}
	return nil
}
