package behaviours

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Fantom-foundation/mech-interact-abci/abci"
	"github.com/Fantom-foundation/mech-interact-abci/behaviour"
	"github.com/Fantom-foundation/mech-interact-abci/config"
	"github.com/Fantom-foundation/mech-interact-abci/contracts"
	"github.com/Fantom-foundation/mech-interact-abci/mech"
	"github.com/Fantom-foundation/mech-interact-abci/multisend"
)

const (
	seedSize       = 32
	ddoEndpointIdx = 2
	nftSalesType   = "nft-sales"
	// the transfer condition times out after 90 blocks
	transferTimeout = 90
)

// subscriptionApproval is the amount of subscription tokens the lock
// payment condition may spend.
var subscriptionApproval = big.NewInt(1000000)

// PurchaseSubscription prepares the multisend transaction buying a
// Nevermined subscription plan for the safe.
type PurchaseSubscription struct {
	base

	hasher  multisend.SafeHasher
	encoder multisend.Encoder
	rand    io.Reader

	nvm  config.NVMConfig
	safe common.Address
	seed string

	endpoint  string
	owner     common.Address
	receivers []common.Address

	agreementID  common.Hash
	lockHash     common.Hash
	lockID       common.Hash
	transferHash common.Hash
	transferID   common.Hash
	escrowHash   common.Hash
	escrowID     common.Hash

	batcher *multisend.Batcher
	tx      *multisend.Tx
}

// NewPurchaseSubscription constructor.
func NewPurchaseSubscription(agent string, synced *mech.SynchronizedData, deps Deps) *PurchaseSubscription {
	deps = deps.withDefaults()
	b := &PurchaseSubscription{
		base:    newBase(agent, mech.PurchaseSubscriptionRound, synced, deps),
		hasher:  deps.Hasher,
		encoder: deps.Encoder,
		rand:    deps.Rand,
	}
	return b
}

// Setup draws a new agreement seed and forgets any previous attempt.
func (b *PurchaseSubscription) Setup() {
	*b = PurchaseSubscription{
		base:    b.base,
		hasher:  b.hasher,
		encoder: b.encoder,
		rand:    b.rand,
	}

	seed := make([]byte, seedSize)
	if _, err := io.ReadFull(b.rand, seed); err != nil {
		b.log.Error("Could not generate the agreement id seed", "err", err)
		return
	}
	b.seed = hexPrefix + hex.EncodeToString(seed)
}

// Seed returns the agreement id seed of the current attempt.
func (b *PurchaseSubscription) Seed() string {
	return b.seed
}

// Run proposes the purchase transaction, a null payload if it could not be prepared.
func (b *PurchaseSubscription) Run(ctx context.Context) (abci.Payload, error) {
	var (
		submitter *string
		txHex     *string
	)
	if err := b.prepareSafeTx(ctx); err != nil {
		if ctx.Err() != nil {
			return abci.Payload{}, ctx.Err()
		}
		b.log.Error("Could not prepare the subscription purchase", "err", err)
	} else {
		submitter = strPtr(string(mech.PurchaseSubscriptionRound))
		txHex = strPtr(b.tx.PayloadHex())
		b.log.Info("Prepared the subscription purchase", "tx", *txHex)
	}
	return abci.NewPayload(b.agent, mech.PurchaseSubscriptionRound, mech.PrepareTxPayload{
		TxSubmitter: submitter,
		TxHash:      txHex,
	}), nil
}

func (b *PurchaseSubscription) prepareSafeTx(ctx context.Context) error {
	if b.seed == "" {
		return errSeed
	}
	nvm, err := b.cfg.NVMConfig()
	if err != nil {
		return err
	}
	b.nvm = nvm
	safe, err := b.safeAddress()
	if err != nil {
		return err
	}
	b.safe = safe
	b.batcher = multisend.NewBatcher(b.cfg.MultisendAddress, safe, b.cfg.MechChainID)

	// no retry budget: any failed stage ends the attempt with a null payload
	step := func(name string, do func(context.Context) behaviour.Outcome) behaviour.Step {
		return behaviour.Step{Name: name, Do: do}
	}
	steps := []behaviour.Step{
		step("get ddo register", b.getDDORegister),
		step("get ddo data", b.getDDOData),
		step("get agreement id", b.getAgreementID),
		step("get lock hash", b.getLockHash),
		step("get lock id", b.getLockID),
		step("get transfer hash", b.getTransferHash),
		step("get transfer id", b.getTransferID),
		step("get escrow hash", b.getEscrowHash),
		step("get escrow id", b.getEscrowID),
		step("build create agreement", b.buildCreateAgreement),
	}
	if b.nvm.PaysWithToken() {
		steps = append(steps, step("build token approval", b.buildApproval))
	}
	steps = append(steps,
		step("build fulfill", b.buildFulfill),
		multisendStep(func() *multisend.Batcher { return b.batcher }, b.encoder, b.hasher, &b.tx, b.log),
	)
	return b.sequencer("purchase subscription", steps...).Run(ctx)
}

func (b *PurchaseSubscription) getDDORegister(ctx context.Context) behaviour.Outcome {
	v, ok := b.read(ctx, contracts.DIDRegistry, b.cfg.DIDRegistryAddress, "get_ddo", "data", map[string]interface{}{
		"did": b.nvm.DID(),
	})
	if !ok {
		return behaviour.Failed
	}
	register, ok := v.([]interface{})
	if !ok || len(register) <= ddoEndpointIdx {
		b.log.Error("Cannot get the ddo endpoint from the register", "register", v)
		return behaviour.Failed
	}
	endpoint, ok := register[ddoEndpointIdx].(string)
	if !ok || endpoint == "" {
		b.log.Error("Cannot get the ddo endpoint from the register", "register", v)
		return behaviour.Failed
	}
	b.endpoint = endpoint
	return behaviour.Succeeded
}

// ddo is the part of a DID document the purchase needs.
type ddo struct {
	Owner   string `json:"owner"`
	Service []struct {
		Type       string `json:"type"`
		Attributes struct {
			ServiceAgreementTemplate struct {
				Conditions []struct {
					Parameters []struct {
						Value json.RawMessage `json:"value"`
					} `json:"parameters"`
				} `json:"conditions"`
			} `json:"serviceAgreementTemplate"`
		} `json:"attributes"`
	} `json:"service"`
}

// receivers are the value of the last parameter of the first condition of
// the nft-sales service.
func (d *ddo) receivers() ([]common.Address, bool) {
	for _, s := range d.Service {
		if s.Type != nftSalesType {
			continue
		}
		conditions := s.Attributes.ServiceAgreementTemplate.Conditions
		if len(conditions) == 0 || len(conditions[0].Parameters) == 0 {
			return nil, false
		}
		params := conditions[0].Parameters
		var values []string
		if err := json.Unmarshal(params[len(params)-1].Value, &values); err != nil || len(values) == 0 {
			return nil, false
		}
		res := make([]common.Address, len(values))
		for i, v := range values {
			if !common.IsHexAddress(v) {
				return nil, false
			}
			res[i] = common.HexToAddress(v)
		}
		return res, true
	}
	return nil, false
}

func (b *PurchaseSubscription) getDDOData(ctx context.Context) behaviour.Outcome {
	resp, ok := b.io.Fetch(ctx, behaviour.HTTPRequest{
		Method:  http.MethodGet,
		URL:     b.endpoint,
		Headers: map[string]string{"accept": "application/json"},
	})
	if !ok {
		return behaviour.Failed
	}
	if resp.StatusCode != http.StatusOK {
		b.log.Error("Error while pulling the data from the ddo endpoint", "status", resp.StatusCode, "body", truncate(string(resp.Body)))
		return behaviour.Failed
	}
	var doc ddo
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		b.log.Error("Failed to decode the ddo", "err", err, "body", truncate(string(resp.Body)))
		return behaviour.Failed
	}
	receivers, ok := doc.receivers()
	if !ok {
		b.log.Error("Could not get the receivers of the nft-sales service", "endpoint", b.endpoint)
		return behaviour.Failed
	}
	if !common.IsHexAddress(doc.Owner) {
		b.log.Error("Invalid ddo owner", "owner", doc.Owner)
		return behaviour.Failed
	}
	b.receivers = receivers
	b.owner = common.HexToAddress(doc.Owner)
	b.log.Info("Fetched the ddo", "owner", b.owner, "receivers", receivers)
	return behaviour.Succeeded
}

func (b *PurchaseSubscription) word(ctx context.Context, contract string, at common.Address, callable, key string, args map[string]interface{}, to *common.Hash) behaviour.Outcome {
	h, ok := b.readWord(ctx, contract, at, callable, key, args)
	if !ok {
		return behaviour.Failed
	}
	*to = h
	b.log.Debug("Fetched condition word", "contract", contract, "callable", callable, key, h.Hex())
	return behaviour.Succeeded
}

func (b *PurchaseSubscription) getAgreementID(ctx context.Context) behaviour.Outcome {
	return b.word(ctx, contracts.AgreementStorage, b.cfg.AgreementStoreManagerAddress, "get_agreement_id", "agreement_id", map[string]interface{}{
		"agreement_id_seed": b.seed,
		"subscriber":        b.safe,
	}, &b.agreementID)
}

func (b *PurchaseSubscription) getLockHash(ctx context.Context) behaviour.Outcome {
	return b.word(ctx, contracts.LockPaymentCondition, b.cfg.LockPaymentConditionAddress, "get_hash_values", "hash", map[string]interface{}{
		"did":            b.nvm.DID(),
		"reward_address": b.cfg.EscrowPaymentConditionAddress,
		"token_address":  b.nvm.SubscriptionTokenAddress,
		"amounts":        b.nvm.Amounts(),
		"receivers":      b.receivers,
	}, &b.lockHash)
}

func (b *PurchaseSubscription) generateID(ctx context.Context, contract string, at common.Address, hash common.Hash, to *common.Hash) behaviour.Outcome {
	return b.word(ctx, contract, at, "get_generate_id", "condition_id", map[string]interface{}{
		"agreement_id": b.agreementID,
		"hash_value":   hash,
	}, to)
}

func (b *PurchaseSubscription) getLockID(ctx context.Context) behaviour.Outcome {
	return b.generateID(ctx, contracts.LockPaymentCondition, b.cfg.LockPaymentConditionAddress, b.lockHash, &b.lockID)
}

func (b *PurchaseSubscription) getTransferHash(ctx context.Context) behaviour.Outcome {
	return b.word(ctx, contracts.TransferNFTCondition, b.cfg.TransferNFTConditionAddress, "get_hash_values", "hash", map[string]interface{}{
		"did":                  b.nvm.DID(),
		"from_address":         b.owner,
		"to_address":           b.safe,
		"amount":               b.nvm.SubscriptionCredits,
		"lock_condition_id":    b.lockID,
		"nft_contract_address": b.nvm.SubscriptionNFTAddress,
		"is_transfer":          false,
	}, &b.transferHash)
}

func (b *PurchaseSubscription) getTransferID(ctx context.Context) behaviour.Outcome {
	return b.generateID(ctx, contracts.TransferNFTCondition, b.cfg.TransferNFTConditionAddress, b.transferHash, &b.transferID)
}

func (b *PurchaseSubscription) getEscrowHash(ctx context.Context) behaviour.Outcome {
	return b.word(ctx, contracts.EscrowPaymentCondition, b.cfg.EscrowPaymentConditionAddress, "get_hash_values", "hash", map[string]interface{}{
		"did":                  b.nvm.DID(),
		"amounts":              b.nvm.Amounts(),
		"receivers":            b.receivers,
		"sender":               b.safe,
		"receiver":             b.cfg.EscrowPaymentConditionAddress,
		"token_address":        b.nvm.SubscriptionTokenAddress,
		"lock_condition_id":    b.lockID,
		"release_condition_id": b.transferID,
	}, &b.escrowHash)
}

func (b *PurchaseSubscription) getEscrowID(ctx context.Context) behaviour.Outcome {
	return b.generateID(ctx, contracts.EscrowPaymentCondition, b.cfg.EscrowPaymentConditionAddress, b.escrowHash, &b.escrowID)
}

func (b *PurchaseSubscription) leg(ctx context.Context, contract string, at common.Address, callable string, value *big.Int, args map[string]interface{}) behaviour.Outcome {
	data, ok := b.build(ctx, contract, at, callable, args)
	if !ok {
		return behaviour.Failed
	}
	if err := b.batcher.Append(multisend.Batch{To: at, Data: data, Value: value}); err != nil {
		b.log.Error("Invalid purchase leg", "callable", callable, "err", err)
		return behaviour.Aborted
	}
	return behaviour.Succeeded
}

func (b *PurchaseSubscription) buildCreateAgreement(ctx context.Context) behaviour.Outcome {
	// a plan paid in the native currency is paid with the call
	value := new(big.Int)
	if !b.nvm.PaysWithToken() {
		for _, a := range b.nvm.Amounts() {
			value.Add(value, a)
		}
	}
	zero := new(big.Int)
	return b.leg(ctx, contracts.NFTSales, b.nvm.NFTSalesAddress, "build_create_agreement_tx", value, map[string]interface{}{
		"agreement_id_seed": b.seed,
		"did":               b.nvm.DID(),
		"condition_seeds":   [][32]byte{b.lockHash, b.transferHash, b.escrowHash},
		"timelocks":         []*big.Int{zero, zero, zero},
		"timeouts":          []*big.Int{zero, big.NewInt(transferTimeout), zero},
		"publisher":         b.safe,
		"service_index":     zero,
		"reward_address":    b.cfg.EscrowPaymentConditionAddress,
		"token_address":     b.nvm.SubscriptionTokenAddress,
		"amounts":           b.nvm.Amounts(),
		"receivers":         b.receivers,
	})
}

func (b *PurchaseSubscription) buildApproval(ctx context.Context) behaviour.Outcome {
	return b.leg(ctx, contracts.ERC20, b.nvm.SubscriptionTokenAddress, "build_approval_tx", nil, map[string]interface{}{
		"spender": b.cfg.LockPaymentConditionAddress,
		"amount":  subscriptionApproval,
	})
}

func (b *PurchaseSubscription) buildFulfill(ctx context.Context) behaviour.Outcome {
	return b.leg(ctx, contracts.SubscriptionProvider, b.nvm.SubscriptionProviderAddress, "build_create_fulfill_tx", nil, map[string]interface{}{
		"agreement_id": b.agreementID,
		"did":          b.nvm.DID(),
		"fulfill_for_delegate_params": contracts.FulfillForDelegateParams{
			NftHolder:            b.owner,
			NftReceiver:          b.safe,
			NftAmount:            b.nvm.SubscriptionCredits,
			LockPaymentCondition: b.lockID,
			NftContractAddress:   b.nvm.SubscriptionNFTAddress,
			Transfer:             false,
			ExpirationBlock:      new(big.Int),
		},
		"fulfill_params": contracts.FulfillParams{
			Amounts:            b.nvm.Amounts(),
			Receivers:          b.receivers,
			ReturnAddress:      b.safe,
			LockPaymentAddress: b.cfg.EscrowPaymentConditionAddress,
			TokenAddress:       b.nvm.SubscriptionTokenAddress,
			LockCondition:      b.lockID,
			ReleaseCondition:   b.transferID,
		},
	})
}

// Cleanup implements behaviour.Behaviour.
func (b *PurchaseSubscription) Cleanup() {}
