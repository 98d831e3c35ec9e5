package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/Fantom-foundation/mech-interact-abci/behaviour"
	"github.com/Fantom-foundation/mech-interact-abci/multisend"
)

var (
	domainSeparatorTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(uint256 chainId,address verifyingContract)"))
	safeTxTypeHash          = crypto.Keccak256Hash([]byte("SafeTx(address to,uint256 value,bytes data,uint8 operation,uint256 safeTxGas,uint256 baseGas,uint256 gasPrice,address gasToken,address refundReceiver,uint256 nonce)"))
)

// ChainIDs maps the chain names to their EIP-155 ids.
var ChainIDs = map[string]int64{
	"ethereum": 1,
	"optimism": 10,
	"gnosis":   100,
	"polygon":  137,
	"base":     8453,
	"mode":     34443,
	"arbitrum": 42161,
	"celo":     42220,
}

// ErrUnknownChainID is returned for a chain name without an EIP-155 id.
var ErrUnknownChainID = errors.New("unknown chain id")

// SafeHasher computes the EIP-712 hash of safe transactions, reading the
// safe nonce through the router.
type SafeHasher struct {
	router behaviour.ContractCaller
}

// NewSafeHasher constructor.
func NewSafeHasher(router behaviour.ContractCaller) *SafeHasher {
	return &SafeHasher{router: router}
}

// SafeTxHash implements multisend.SafeHasher.
func (h *SafeHasher) SafeTxHash(ctx context.Context, tx multisend.SafeTx) ([]byte, error) {
	chainID, ok := ChainIDs[tx.ChainID]
	if !ok {
		return nil, errors.Wrap(ErrUnknownChainID, tx.ChainID)
	}
	resp, err := h.router.Call(ctx, behaviour.ContractRequest{
		Contract: GnosisSafe,
		Address:  tx.Safe,
		Callable: "get_nonce",
		ChainID:  tx.ChainID,
	})
	if err != nil {
		return nil, err
	}
	if resp.Status != behaviour.ContractOK {
		return nil, errors.Errorf("safe nonce: %s", resp.Message)
	}
	nonce, ok := ToBig(resp.Data["nonce"])
	if !ok {
		return nil, errors.Errorf("safe nonce: unexpected %v", resp.Data["nonce"])
	}
	return SafeTxHash(big.NewInt(chainID), tx, nonce).Bytes(), nil
}

// SafeTxHash is the EIP-712 hash of a safe transaction without refunds.
func SafeTxHash(chainID *big.Int, tx multisend.SafeTx, nonce *big.Int) common.Hash {
	domain := crypto.Keccak256Hash(
		domainSeparatorTypeHash.Bytes(),
		word(chainID),
		common.LeftPadBytes(tx.Safe.Bytes(), 32),
	)
	structHash := crypto.Keccak256Hash(
		safeTxTypeHash.Bytes(),
		common.LeftPadBytes(tx.To.Bytes(), 32),
		word(tx.Value),
		crypto.Keccak256(tx.Data),
		word(big.NewInt(int64(tx.Operation))),
		word(tx.SafeTxGas),
		word(nil), // base gas
		word(nil), // gas price
		common.LeftPadBytes(common.Address{}.Bytes(), 32), // gas token
		common.LeftPadBytes(common.Address{}.Bytes(), 32), // refund receiver
		word(nonce),
	)
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, domain.Bytes(), structHash.Bytes())
}

func word(v *big.Int) []byte {
	if v == nil {
		return make([]byte, 32)
	}
	return common.LeftPadBytes(v.Bytes(), 32)
}
