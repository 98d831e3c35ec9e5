package contracts

import (
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// FulfillForDelegateParams is the NFT leg of a subscription fulfilment.
type FulfillForDelegateParams struct {
	NftHolder            common.Address `abi:"nftHolder"`
	NftReceiver          common.Address `abi:"nftReceiver"`
	NftAmount            *big.Int       `abi:"nftAmount"`
	LockPaymentCondition [32]byte       `abi:"lockPaymentCondition"`
	NftContractAddress   common.Address `abi:"nftContractAddress"`
	Transfer             bool           `abi:"transfer"`
	ExpirationBlock      *big.Int       `abi:"expirationBlock"`
}

// FulfillParams is the payment leg of a subscription fulfilment.
type FulfillParams struct {
	Amounts            []*big.Int       `abi:"amounts"`
	Receivers          []common.Address `abi:"receivers"`
	ReturnAddress      common.Address   `abi:"returnAddress"`
	LockPaymentAddress common.Address   `abi:"lockPaymentAddress"`
	TokenAddress       common.Address   `abi:"tokenAddress"`
	LockCondition      [32]byte         `abi:"lockCondition"`
	ReleaseCondition   [32]byte         `abi:"releaseCondition"`
}

// convert coerces a request argument to the Go type the abi packs.
func convert(t abi.Type, v interface{}) (interface{}, error) {
	switch t.T {
	case abi.AddressTy:
		switch a := v.(type) {
		case common.Address:
			return a, nil
		case *common.Address:
			return *a, nil
		case string:
			if !common.IsHexAddress(a) {
				return nil, errors.Errorf("invalid address %q", a)
			}
			return common.HexToAddress(a), nil
		}

	case abi.UintTy, abi.IntTy:
		if t.Size <= 64 {
			return v, nil
		}
		if n, ok := ToBig(v); ok {
			return n, nil
		}

	case abi.FixedBytesTy:
		if t.Size != 32 {
			return v, nil
		}
		switch b := v.(type) {
		case [32]byte:
			return b, nil
		case common.Hash:
			return [32]byte(b), nil
		case []byte:
			if len(b) == 32 {
				return [32]byte(common.BytesToHash(b)), nil
			}
		case string:
			raw, err := hexutil.Decode(b)
			if err == nil && len(raw) == 32 {
				return [32]byte(common.BytesToHash(raw)), nil
			}
		}

	case abi.BytesTy:
		switch b := v.(type) {
		case []byte:
			return b, nil
		case hexutil.Bytes:
			return []byte(b), nil
		case string:
			if b == "" || b == "0x" {
				return []byte{}, nil
			}
			raw, err := hexutil.Decode(b)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid bytes %q", b)
			}
			return raw, nil
		}

	case abi.SliceTy:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice {
			break
		}
		if rv.Len() == 0 {
			return v, nil
		}
		var out reflect.Value
		for i := 0; i < rv.Len(); i++ {
			e, err := convert(*t.Elem, rv.Index(i).Interface())
			if err != nil {
				return nil, errors.Wrapf(err, "item %d", i)
			}
			if i == 0 {
				out = reflect.MakeSlice(reflect.SliceOf(reflect.TypeOf(e)), 0, rv.Len())
			}
			out = reflect.Append(out, reflect.ValueOf(e))
		}
		return out.Interface(), nil

	default:
		return v, nil
	}
	return nil, errors.Errorf("cannot use %T as %s", v, t.String())
}
