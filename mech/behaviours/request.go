package behaviours

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Fantom-foundation/mech-interact-abci/abci"
	"github.com/Fantom-foundation/mech-interact-abci/behaviour"
	"github.com/Fantom-foundation/mech-interact-abci/contracts"
	"github.com/Fantom-foundation/mech-interact-abci/inter/mechs"
	"github.com/Fantom-foundation/mech-interact-abci/ipfs"
	"github.com/Fantom-foundation/mech-interact-abci/mech"
	"github.com/Fantom-foundation/mech-interact-abci/multisend"
)

const (
	metadataFilename = "metadata.json"
	hexPrefix        = "0x"
	emptyPaymentData = hexPrefix
)

// Payment types of the mechs paid with Nevermined subscription credits.
var (
	NVMNativePaymentType = common.HexToHash("0x803dd08fe79d91027fc9024e254a0942372b92f3ccabc1bd19f4a5c2b251c316")
	NVMTokenPaymentType  = common.HexToHash("0x0d6fd99afa9c4c580fab5e341922c2a5c4b61d880da60506193d7bf88944dd14")
)

var weiPerUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

func weiToUnit(wei *big.Int) string {
	return new(big.Rat).SetFrac(wei, weiPerUnit).FloatString(6)
}

// Request prepares the multisend transaction sending the pending requests
// to a mech. It stops early when a Nevermined subscription must be bought first.
type Request struct {
	base

	hasher  multisend.SafeHasher
	encoder multisend.Encoder
	specs   *behaviour.ApiSpecs

	safe     common.Address
	requests []mechs.Metadata
	pending  []*mechs.InteractionResponse
	current  *mechs.Metadata
	// requestData of the last uploaded request, 0x prefixed
	requestData string

	isV2            *bool
	price           *big.Int
	batchSize       int
	paymentType     *common.Hash
	maxDeliveryRate *big.Int

	nvmBalance          *big.Int
	subscriptionNFT     common.Address
	subscriptionID      *big.Int
	subscriptionBalance *big.Int

	batcher *multisend.Batcher
	tx      *multisend.Tx
}

// NewRequest constructor.
func NewRequest(agent string, synced *mech.SynchronizedData, deps Deps) *Request {
	deps = deps.withDefaults()
	b := &Request{
		base:    newBase(agent, mech.RequestRound, synced, deps),
		hasher:  deps.Hasher,
		encoder: deps.Encoder,
	}
	b.specs = b.retrySpecs("", "")
	return b
}

// Setup loads the pending requests and forgets any previous attempt.
func (b *Request) Setup() {
	requests, err := b.synced.MechRequests()
	if err != nil {
		b.log.Error("Could not read the mech requests", "err", err)
		requests = nil
	}
	*b = Request{
		base:     b.base,
		hasher:   b.hasher,
		encoder:  b.encoder,
		specs:    b.specs,
		requests: requests,
	}
	b.specs.ResetRetries()
	b.log.Info("Processing mech requests", "requests", len(requests))
}

// Run implements behaviour.Behaviour.
func (b *Request) Run(ctx context.Context) (abci.Payload, error) {
	if len(b.requests) == 0 {
		return b.skipPayload(), nil
	}

	safe, err := b.safeAddress()
	if err != nil {
		return abci.Payload{}, err
	}
	b.safe = safe
	b.batcher = multisend.NewBatcher(b.cfg.MultisendAddress, safe, b.cfg.MechChainID)

	buySubscription, err := b.prepareSafeTx(ctx)
	if err != nil {
		return abci.Payload{}, err
	}
	if buySubscription {
		return abci.NewPayload(b.agent, mech.RequestRound, mech.MechRequestPayload{}), nil
	}

	requests, err := mechs.Serialize(b.requests)
	if err != nil {
		return abci.Payload{}, err
	}
	responses, err := mechs.Serialize(b.pending)
	if err != nil {
		return abci.Payload{}, err
	}
	txHex := b.tx.PayloadHex()
	b.log.Info("Preparing mech request", "tx", txHex, "price", b.price, "requests", requests, "responses", responses)
	return abci.NewPayload(b.agent, mech.RequestRound, mech.MechRequestPayload{
		TxSubmitter:         strPtr(string(mech.RequestRound)),
		TxHash:              &txHex,
		Price:               b.price,
		ChainID:             strPtr(b.cfg.MechChainID),
		SafeContractAddress: b.synced.SafeContractAddress(),
		MechRequests:        &requests,
		MechResponses:       &responses,
	}), nil
}

func (b *Request) skipPayload() abci.Payload {
	return abci.NewPayload(b.agent, mech.RequestRound, mech.MechRequestPayload{
		TxSubmitter:         strPtr(string(mech.RequestRound)),
		ChainID:             strPtr(b.cfg.MechChainID),
		SafeContractAddress: b.synced.SafeContractAddress(),
		MechRequests:        strPtr(mech.SerializedEmptyList),
		MechResponses:       strPtr(mech.SerializedEmptyList),
	})
}

// prepareSafeTx returns true if a subscription has to be bought first.
func (b *Request) prepareSafeTx(ctx context.Context) (bool, error) {
	var steps []behaviour.Step
	if b.cfg.UseMechMarketplace {
		steps = append(steps, behaviour.Step{Name: "detect marketplace", Do: b.detectVersion})
	}
	steps = append(steps,
		behaviour.Step{Name: "get price", Do: b.getPrice, Specs: b.specs},
		behaviour.Step{Name: "get payment type", Do: b.getPaymentType, Specs: b.specs},
	)
	if err := b.sequencer("pricing", steps...).Run(ctx); err != nil {
		return false, err
	}

	b.batchSize = b.cfg.MultisendBatchSize
	if len(b.requests) < b.batchSize {
		b.batchSize = len(b.requests)
	}

	steps = nil
	if b.usingNevermined() {
		err := b.sequencer("nvm balance",
			behaviour.Step{Name: "get nvm balance", Do: b.getNVMBalance, Specs: b.specs},
			behaviour.Step{Name: "get subscription nft", Do: b.getSubscriptionNFT, Specs: b.specs},
			behaviour.Step{Name: "get subscription token id", Do: b.getSubscriptionID, Specs: b.specs},
			behaviour.Step{Name: "get subscription balance", Do: b.getSubscriptionBalance, Specs: b.specs},
		).Run(ctx)
		if err != nil {
			return false, err
		}
		total := new(big.Int).Add(b.nvmBalance, b.subscriptionBalance)
		if total.Cmp(b.maxDeliveryRate) < 0 {
			b.log.Warn("Not enough subscription credits, buying a subscription", "balance", total, "required", b.maxDeliveryRate)
			return true, nil
		}
	} else {
		steps = append(steps, behaviour.Step{Name: "ensure balance", Do: b.ensureBalance, Specs: b.specs})
	}

	for i := 0; i < b.batchSize; i++ {
		steps = append(steps,
			behaviour.Step{Name: "send metadata", Do: b.sendMetadata, Specs: b.specs},
			behaviour.Step{Name: "build request data", Do: b.buildRequestData, Specs: b.specs},
		)
	}
	steps = append(steps, multisendStep(func() *multisend.Batcher { return b.batcher }, b.encoder, b.hasher, &b.tx, b.log))

	seq := b.sequencer("request", steps...)
	// an insufficient balance is re-checked after the interaction sleep time
	seq.SuspendInterval = b.cfg.SleepTime()
	return false, seq.Run(ctx)
}

func (b *Request) usesV2() bool {
	return b.cfg.UseMechMarketplace && b.isV2 != nil && *b.isV2
}

func (b *Request) usingNevermined() bool {
	if b.paymentType == nil {
		return false
	}
	return *b.paymentType == NVMNativePaymentType || *b.paymentType == NVMTokenPaymentType
}

func (b *Request) detectVersion(ctx context.Context) behaviour.Outcome {
	b.isV2 = b.marketplaceVersion(ctx)
	return behaviour.Succeeded
}

func (b *Request) getPrice(ctx context.Context) behaviour.Outcome {
	if b.usesV2() {
		rate, ok := b.readBig(ctx, contracts.MechMM, b.cfg.Marketplace.PriorityMechAddress, "get_max_delivery_rate", "max_delivery_rate", nil)
		if !ok {
			b.log.Error("Max delivery rate is required for marketplace requests but could not be fetched")
			return behaviour.Failed
		}
		b.log.Info("Max delivery rate fetched", "rate", rate)
		b.maxDeliveryRate = rate
		b.price = new(big.Int).Set(rate)
		return behaviour.Succeeded
	}

	if b.cfg.MechRequestPrice != nil {
		b.price = new(big.Int).Set(b.cfg.MechRequestPrice)
		b.log.Info("Using the configured price", "price", b.price)
		return behaviour.Succeeded
	}
	price, ok := b.readBig(ctx, contracts.Mech, b.cfg.MechContractAddress, "get_price", "price", nil)
	if !ok {
		return behaviour.Failed
	}
	b.price = price
	return behaviour.Succeeded
}

func (b *Request) getPaymentType(ctx context.Context) behaviour.Outcome {
	if !b.usesV2() {
		return behaviour.Succeeded
	}
	pt, ok := b.readWord(ctx, contracts.MechMM, b.cfg.Marketplace.PriorityMechAddress, "get_payment_type", "payment_type", nil)
	if !ok {
		b.log.Error("Failed to get payment type from contract")
		return behaviour.Failed
	}
	b.log.Info("Payment type fetched", "type", pt.Hex())
	b.paymentType = &pt
	return behaviour.Succeeded
}

func (b *Request) getNVMBalance(ctx context.Context) behaviour.Outcome {
	balance, ok := b.readBig(ctx, contracts.BalanceTracker, b.cfg.NVMBalanceTrackerAddress, "get_balance", "balance", map[string]interface{}{
		"address": b.safe,
	})
	if !ok {
		return behaviour.Failed
	}
	b.nvmBalance = balance
	return behaviour.Succeeded
}

func (b *Request) getSubscriptionNFT(ctx context.Context) behaviour.Outcome {
	v, ok := b.read(ctx, contracts.BalanceTracker, b.cfg.NVMBalanceTrackerAddress, "get_subscription_nft", "address", nil)
	if !ok {
		return behaviour.Failed
	}
	nft, ok := v.(common.Address)
	if !ok {
		b.log.Error("Unexpected subscription nft", "value", v)
		return behaviour.Failed
	}
	b.subscriptionNFT = nft
	return behaviour.Succeeded
}

func (b *Request) getSubscriptionID(ctx context.Context) behaviour.Outcome {
	id, ok := b.readBig(ctx, contracts.BalanceTracker, b.cfg.NVMBalanceTrackerAddress, "get_subscription_token_id", "id", nil)
	if !ok {
		return behaviour.Failed
	}
	b.subscriptionID = id
	return behaviour.Succeeded
}

func (b *Request) getSubscriptionBalance(ctx context.Context) behaviour.Outcome {
	balance, ok := b.readBig(ctx, contracts.ERC1155, b.subscriptionNFT, "get_balance", "balance", map[string]interface{}{
		"account":         b.safe,
		"subscription_id": b.subscriptionID,
	})
	if !ok {
		return behaviour.Failed
	}
	b.subscriptionBalance = balance
	return behaviour.Succeeded
}

// ensureBalance passes if the safe can pay the price of every request of the
// batch, unwrapping tokens if needed. An insufficient balance suspends the
// step until refilled.
func (b *Request) ensureBalance(ctx context.Context) behaviour.Outcome {
	wallet, ok := b.io.Balance(ctx, b.safe, b.cfg.MechChainID)
	if !ok {
		return behaviour.Failed
	}
	b.log.Info("Native balance", "account", b.safe, "units", weiToUnit(wallet))

	wrapped := b.cfg.MechWrappedNativeTokenAddress
	token := new(big.Int)
	if wrapped == (common.Address{}) {
		b.log.Info("Wrapped native token address has not been configured, assuming no wrapped native tokens")
	} else {
		token, ok = b.readBig(ctx, contracts.ERC20, wrapped, "check_balance", "token", map[string]interface{}{
			"account": b.safe,
		})
		if !ok {
			b.log.Error("Failed to get the wrapped native balance", "account", b.safe, "token", wrapped)
			return behaviour.Failed
		}
		b.log.Info("Wrapped native balance", "account", b.safe, "units", weiToUnit(token))
	}

	required := new(big.Int).Mul(b.price, big.NewInt(int64(b.batchSize)))
	if required.Cmp(wallet) <= 0 {
		return behaviour.Succeeded
	}
	available := new(big.Int).Add(wallet, token)
	if required.Cmp(available) <= 0 {
		amount := new(big.Int).Sub(required, wallet)
		data, ok := b.build(ctx, contracts.ERC20, wrapped, "build_withdraw_tx", map[string]interface{}{
			"amount": amount,
		})
		if !ok {
			return behaviour.Failed
		}
		if err := b.batcher.Append(multisend.Batch{To: wrapped, Data: data}); err != nil {
			b.log.Error("Invalid unwrap leg", "err", err)
			return behaviour.Aborted
		}
		b.log.Info("Built transaction to unwrap tokens", "amount", amount)
		return behaviour.Succeeded
	}

	shortage := new(big.Int).Sub(required, available)
	refill := "native tokens"
	if wrapped != (common.Address{}) {
		refill = "native tokens or wrapped native tokens"
	}
	b.log.Warn("The balance is not enough to pay for the mech's price, please refill the safe",
		"safe", b.safe, "shortage", shortage, "units", weiToUnit(shortage), "with", refill)
	return behaviour.Suspended
}

// sendMetadata uploads the last pending request.
func (b *Request) sendMetadata(ctx context.Context) behaviour.Outcome {
	if b.current == nil {
		last := b.requests[len(b.requests)-1]
		b.requests = b.requests[:len(b.requests)-1]
		b.current = &last
	}

	metadata, err := json.Marshal(b.current)
	if err != nil {
		b.log.Error("Invalid request metadata", "err", err)
		return behaviour.Aborted
	}
	cid, ok := b.io.Store(ctx, metadataFilename, metadata)
	if !ok {
		return behaviour.Failed
	}
	v1Hex, err := ipfs.ToV1Hex(cid)
	if err != nil {
		b.log.Error("Unexpected ipfs hash", "cid", cid, "err", err)
		return behaviour.Failed
	}
	data, err := ipfs.RequestData(v1Hex)
	if err != nil {
		b.log.Error("Unexpected ipfs hash", "cid", cid, "err", err)
		return behaviour.Failed
	}
	b.log.Info("Prompt uploaded", "link", b.cfg.IPFSLink()+v1Hex)

	b.pending = append(b.pending, mechs.NewInteractionResponse(b.current.Nonce, data))
	b.requestData = hexPrefix + data
	b.current = nil
	return behaviour.Succeeded
}

// buildRequestData appends the request leg of the last uploaded request.
func (b *Request) buildRequestData(ctx context.Context) behaviour.Outcome {
	var (
		contract string
		target   common.Address
		args     map[string]interface{}
		mm       = &b.cfg.Marketplace
	)
	switch {
	case b.usesV2():
		b.log.Info("Building request data for the marketplace v2 flow")
		contract, target = contracts.Marketplace, mm.MechMarketplaceAddress
		args = map[string]interface{}{
			"request_data":      b.requestData,
			"max_delivery_rate": b.maxDeliveryRate,
			"payment_type":      *b.paymentType,
			"priority_mech":     mm.PriorityMechAddress,
			"response_timeout":  mm.ResponseTimeout,
			"payment_data":      emptyPaymentData,
		}
	case b.cfg.UseMechMarketplace:
		b.log.Info("Building request data for the legacy marketplace flow")
		contract, target = contracts.MarketplaceLegacy, mm.MechMarketplaceAddress
		args = map[string]interface{}{
			"request_data":                   b.requestData,
			"priority_mech":                  mm.PriorityMechAddress,
			"priority_mech_staking_instance": mm.PriorityMechStakingInstanceAddress,
			"priority_mech_service_id":       mm.PriorityMechServiceID,
			"requester_staking_instance":     mm.RequesterStakingInstanceAddress,
			"requester_service_id":           b.cfg.OnChainServiceID,
			"response_timeout":               mm.ResponseTimeout,
		}
	default:
		b.log.Info("Building request data for the direct mech flow")
		contract, target = contracts.Mech, b.cfg.MechContractAddress
		args = map[string]interface{}{
			"request_data": b.requestData,
		}
	}

	data, ok := b.build(ctx, contract, target, "get_request_data", args)
	if !ok {
		b.log.Error("Failed to build request data")
		return behaviour.Failed
	}
	// subscription credits pay the Nevermined mechs
	value := b.price
	if b.usingNevermined() {
		value = new(big.Int)
	}
	if err := b.batcher.Append(multisend.Batch{To: target, Data: data, Value: value}); err != nil {
		b.log.Error("Invalid request leg", "err", err)
		return behaviour.Aborted
	}
	b.log.Info("Added the request leg", "to", target, "value", value)
	return behaviour.Succeeded
}

// Cleanup implements behaviour.Behaviour.
func (b *Request) Cleanup() {
	b.specs.ResetRetries()
}
