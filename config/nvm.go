package config

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const planDIDPrefix = "did:nv:"

// NVMConfig is the Nevermined subscription plan of a chain.
type NVMConfig struct {
	PlanFeeNVM                  *big.Int
	PlanPriceMech               *big.Int
	SubscriptionCredits         *big.Int
	SubscriptionNFTAddress      common.Address
	NFTSalesAddress             common.Address
	SubscriptionTokenAddress    common.Address
	SubscriptionProviderAddress common.Address
	PlanDID                     string
}

// DID returns the plan DID as a 0x prefixed hex word.
func (c NVMConfig) DID() common.Hash {
	return common.HexToHash(strings.Replace(c.PlanDID, planDIDPrefix, "0x", 1))
}

// Amounts are the fee and the price paid for a subscription.
func (c NVMConfig) Amounts() []*big.Int {
	return []*big.Int{new(big.Int).Set(c.PlanFeeNVM), new(big.Int).Set(c.PlanPriceMech)}
}

// PaysWithToken reports whether the plan is paid in an ERC-20 token
// rather than in the native currency.
func (c NVMConfig) PaysWithToken() bool {
	return c.SubscriptionTokenAddress != (common.Address{})
}

// Resolver maps chain ids to their Nevermined plans.
type Resolver map[string]NVMConfig

// ErrUnknownChain is returned for a chain without a plan.
var ErrUnknownChain = errors.New("no nevermined plan for chain")

// Resolve returns the plan of the chain.
func (r Resolver) Resolve(chainID string) (NVMConfig, error) {
	c, ok := r[chainID]
	if !ok {
		return NVMConfig{}, errors.Wrap(ErrUnknownChain, chainID)
	}
	return c, nil
}

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("invalid amount " + s)
	}
	return v
}

// DefaultResolver knows the livenet plans.
func DefaultResolver() Resolver {
	return Resolver{
		"gnosis": {
			PlanFeeNVM:                  wei("10000000000000000"),
			PlanPriceMech:               wei("990000000000000000"),
			SubscriptionCredits:         wei("1000000"),
			SubscriptionNFTAddress:      common.HexToAddress("0x1b5DeaD7309b56ca7663b3301A503e077Be18cba"),
			NFTSalesAddress:             common.HexToAddress("0x72201948087aE83f8Eac22cf7A9f2139e4cFA829"),
			SubscriptionTokenAddress:    common.Address{},
			SubscriptionProviderAddress: common.HexToAddress("0x4a2f40E14309c20c0C3803c3CcCd5E9B5F2D4eCA"),
			PlanDID:                     "did:nv:b0b28402e5a7229804579d4ac55b98a1dd94660d7a7eb4add78e5ca856f2aab7",
		},
		"base": {
			PlanFeeNVM:                  wei("10000"),
			PlanPriceMech:               wei("990000"),
			SubscriptionCredits:         wei("1000000"),
			SubscriptionNFTAddress:      common.HexToAddress("0xd5318d1A17819F65771B6c9277534C08Dd765498"),
			NFTSalesAddress:             common.HexToAddress("0x468dC6d758129c4563005B49aC58DfF2e6f7F08e"),
			SubscriptionTokenAddress:    common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
			SubscriptionProviderAddress: common.HexToAddress("0x5050c577583D25Ff9C9492A39e8D1B94028ffA55"),
			PlanDID:                     "did:nv:6f74c18fae7e5c3589b99d7cd0ba317593f00dee53c81a2ba4ac2244232f99da",
		},
	}
}
