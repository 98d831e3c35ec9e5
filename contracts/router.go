// Package contracts reads and encodes the calls of the contracts the mech
// interaction talks to.
package contracts

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/log"
	pkgerrors "github.com/pkg/errors"

	"github.com/Fantom-foundation/mech-interact-abci/behaviour"
)

var (
	ErrUnknownCallable = errors.New("unknown contract callable")
	ErrMissingArg      = errors.New("missing callable argument")
	ErrNoBackend       = errors.New("no backend for chain")
)

// DataKey is the result key of the encoding callables.
const DataKey = "data"

// method binds a callable to an abi function.
type method struct {
	abi  *abi.ABI
	name string
	// args are the request argument names, in abi order.
	args []string
	// build callables are encoded locally, the call data is returned under DataKey.
	build bool
	// results name the outputs in order. A single name for several outputs
	// collects them as a list.
	results []string
}

type callable struct {
	contract, name string
}

func mustParse(def string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return &parsed
}

var (
	mechABIParsed                 = mustParse(mechABI)
	mechMMABIParsed               = mustParse(mechMMABI)
	marketplaceABIParsed          = mustParse(marketplaceABI)
	marketplaceLegacyABIParsed    = mustParse(marketplaceLegacyABI)
	erc20ABIParsed                = mustParse(erc20ABI)
	erc1155ABIParsed              = mustParse(erc1155ABI)
	balanceTrackerABIParsed       = mustParse(balanceTrackerABI)
	didRegistryABIParsed          = mustParse(didRegistryABI)
	agreementStorageABIParsed     = mustParse(agreementStorageABI)
	lockPaymentABIParsed          = mustParse(lockPaymentConditionABI)
	transferNFTABIParsed          = mustParse(transferNFTConditionABI)
	escrowPaymentABIParsed        = mustParse(escrowPaymentConditionABI)
	nftSalesABIParsed             = mustParse(nftSalesABI)
	subscriptionProviderABIParsed = mustParse(subscriptionProviderABI)
	gnosisSafeABIParsed           = mustParse(gnosisSafeABI)
)

var methods = map[callable]method{
	{Mech, "get_price"}:        {abi: mechABIParsed, name: "price", results: []string{"price"}},
	{Mech, "get_request_data"}: {abi: mechABIParsed, name: "request", args: []string{"request_data"}, build: true},

	{MechMM, "get_payment_type"}:      {abi: mechMMABIParsed, name: "paymentType", results: []string{"payment_type"}},
	{MechMM, "get_max_delivery_rate"}: {abi: mechMMABIParsed, name: "maxDeliveryRate", results: []string{"max_delivery_rate"}},

	{Marketplace, "get_max_fee_factor"}: {abi: marketplaceABIParsed, name: "maxFeeFactor", results: []string{"max_fee_factor"}},
	{Marketplace, "get_request_data"}: {abi: marketplaceABIParsed, name: "request", build: true, args: []string{
		"request_data", "max_delivery_rate", "payment_type", "priority_mech", "response_timeout", "payment_data",
	}},
	{MarketplaceLegacy, "get_request_data"}: {abi: marketplaceLegacyABIParsed, name: "request", build: true, args: []string{
		"request_data", "priority_mech", "priority_mech_staking_instance", "priority_mech_service_id",
		"requester_staking_instance", "requester_service_id", "response_timeout",
	}},

	{ERC20, "check_balance"}:     {abi: erc20ABIParsed, name: "balanceOf", args: []string{"account"}, results: []string{"token"}},
	{ERC20, "build_withdraw_tx"}: {abi: erc20ABIParsed, name: "withdraw", args: []string{"amount"}, build: true},
	{ERC20, "build_approval_tx"}: {abi: erc20ABIParsed, name: "approve", args: []string{"spender", "amount"}, build: true},

	{ERC1155, "get_balance"}: {abi: erc1155ABIParsed, name: "balanceOf", args: []string{"account", "subscription_id"}, results: []string{"balance"}},

	{BalanceTracker, "get_balance"}:               {abi: balanceTrackerABIParsed, name: "mapRequesterBalances", args: []string{"address"}, results: []string{"balance"}},
	{BalanceTracker, "get_subscription_nft"}:      {abi: balanceTrackerABIParsed, name: "subscriptionNFT", results: []string{"address"}},
	{BalanceTracker, "get_subscription_token_id"}: {abi: balanceTrackerABIParsed, name: "subscriptionTokenId", results: []string{"id"}},

	{DIDRegistry, "get_ddo"}: {abi: didRegistryABIParsed, name: "getDIDRegister", args: []string{"did"}, results: []string{"data"}},

	{AgreementStorage, "get_agreement_id"}: {abi: agreementStorageABIParsed, name: "agreementId", args: []string{"agreement_id_seed", "subscriber"}, results: []string{"agreement_id"}},

	{LockPaymentCondition, "get_hash_values"}: {abi: lockPaymentABIParsed, name: "hashValues", args: []string{
		"did", "reward_address", "token_address", "amounts", "receivers",
	}, results: []string{"hash"}},
	{LockPaymentCondition, "get_generate_id"}: {abi: lockPaymentABIParsed, name: "generateId", args: []string{"agreement_id", "hash_value"}, results: []string{"condition_id"}},

	{TransferNFTCondition, "get_hash_values"}: {abi: transferNFTABIParsed, name: "hashValues", args: []string{
		"did", "from_address", "to_address", "amount", "lock_condition_id", "nft_contract_address", "is_transfer",
	}, results: []string{"hash"}},
	{TransferNFTCondition, "get_generate_id"}: {abi: transferNFTABIParsed, name: "generateId", args: []string{"agreement_id", "hash_value"}, results: []string{"condition_id"}},

	{EscrowPaymentCondition, "get_hash_values"}: {abi: escrowPaymentABIParsed, name: "hashValues", args: []string{
		"did", "amounts", "receivers", "sender", "receiver", "token_address", "lock_condition_id", "release_condition_id",
	}, results: []string{"hash"}},
	{EscrowPaymentCondition, "get_generate_id"}: {abi: escrowPaymentABIParsed, name: "generateId", args: []string{"agreement_id", "hash_value"}, results: []string{"condition_id"}},

	{NFTSales, "build_create_agreement_tx"}: {abi: nftSalesABIParsed, name: "createAgreementAndPayEscrow", build: true, args: []string{
		"agreement_id_seed", "did", "condition_seeds", "timelocks", "timeouts", "publisher",
		"service_index", "reward_address", "token_address", "amounts", "receivers",
	}},

	{SubscriptionProvider, "build_create_fulfill_tx"}: {abi: subscriptionProviderABIParsed, name: "fulfill", build: true, args: []string{
		"agreement_id", "did", "fulfill_for_delegate_params", "fulfill_params",
	}},

	{GnosisSafe, "get_nonce"}: {abi: gnosisSafeABIParsed, name: "nonce", results: []string{"nonce"}},
}

// Router serves contract callables: encodings locally, reads with eth_call
// on the backend of the requested chain.
type Router struct {
	backends map[string]bind.ContractCaller

	log log.Logger
}

// NewRouter constructor. backends maps chain ids to their nodes.
func NewRouter(backends map[string]bind.ContractCaller) *Router {
	return &Router{
		backends: backends,
		log:      log.New("module", "contracts"),
	}
}

// Call implements behaviour.ContractCaller.
func (r *Router) Call(ctx context.Context, req behaviour.ContractRequest) (behaviour.ContractResponse, error) {
	m, ok := methods[callable{req.Contract, req.Callable}]
	if !ok {
		return behaviour.ContractResponse{}, pkgerrors.Wrapf(ErrUnknownCallable, "%s.%s", req.Contract, req.Callable)
	}

	input, err := m.pack(req.Args)
	if err != nil {
		return behaviour.ContractResponse{
			Status:  behaviour.ContractError,
			Message: err.Error(),
		}, nil
	}
	if m.build {
		return behaviour.ContractResponse{
			Status: behaviour.ContractOK,
			Data:   map[string]interface{}{DataKey: input},
		}, nil
	}

	backend, ok := r.backends[req.ChainID]
	if !ok {
		return behaviour.ContractResponse{}, pkgerrors.Wrap(ErrNoBackend, req.ChainID)
	}
	to := req.Address
	output, err := backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return behaviour.ContractResponse{}, pkgerrors.Wrapf(err, "%s.%s at %s", req.Contract, m.name, req.Address.Hex())
	}
	data, err := m.unpack(output)
	if err != nil {
		r.log.Debug("Unexpected contract output", "contract", req.Contract, "method", m.name, "output", output)
		return behaviour.ContractResponse{
			Status:  behaviour.ContractError,
			Message: err.Error(),
		}, nil
	}
	return behaviour.ContractResponse{Status: behaviour.ContractOK, Data: data}, nil
}

func (m *method) pack(args map[string]interface{}) ([]byte, error) {
	inputs := m.abi.Methods[m.name].Inputs
	values := make([]interface{}, len(m.args))
	for i, name := range m.args {
		v, ok := args[name]
		if !ok {
			return nil, pkgerrors.Wrapf(ErrMissingArg, "%s of %s", name, m.name)
		}
		conv, err := convert(inputs[i].Type, v)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "%s of %s", name, m.name)
		}
		values[i] = conv
	}
	return m.abi.Pack(m.name, values...)
}

func (m *method) unpack(output []byte) (map[string]interface{}, error) {
	values, err := m.abi.Methods[m.name].Outputs.UnpackValues(output)
	if err != nil {
		return nil, err
	}
	if len(m.results) == 1 && len(values) > 1 {
		return map[string]interface{}{m.results[0]: values}, nil
	}
	if len(values) != len(m.results) {
		return nil, pkgerrors.Errorf("%s returned %d values, %d expected", m.name, len(values), len(m.results))
	}
	data := make(map[string]interface{}, len(values))
	for i, v := range values {
		data[m.results[i]] = v
	}
	return data, nil
}

// ToBig coerces a numeric contract result.
func ToBig(v interface{}) (*big.Int, bool) {
	switch n := v.(type) {
	case *big.Int:
		return n, n != nil
	case int:
		return big.NewInt(int64(n)), true
	case int64:
		return big.NewInt(n), true
	case uint64:
		return new(big.Int).SetUint64(n), true
	case string:
		return new(big.Int).SetString(n, 0)
	}
	return nil, false
}
