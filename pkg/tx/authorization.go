package tx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/Klingon-tech/klingnet-wallet/pkg/crypto"
)

// authorizationMagic prefixes the EIP-7702 authorization payload.
const authorizationMagic = 0x05

// delegationPrefix starts the code of an EIP-7702 delegated account.
var delegationPrefix = []byte{0xef, 0x01, 0x00}

// Authorization is a signed EIP-7702 authorization letting an EOA run the
// code at Address.
type Authorization struct {
	ChainID *big.Int
	Address common.Address
	Nonce   uint64
	YParity uint8
	R       *big.Int
	S       *big.Int
}

// AuthorizationHash returns keccak256(0x05 || rlp([chainId, address, nonce])).
func AuthorizationHash(chainID *big.Int, delegate common.Address, nonce uint64) (common.Hash, error) {
	if chainID == nil {
		chainID = new(big.Int)
	}
	enc, err := rlp.EncodeToBytes([]any{chainID, delegate, nonce})
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode authorization: %w", err)
	}
	return crypto.Keccak256([]byte{authorizationMagic}, enc), nil
}

// SignAuthorization signs an authorization for delegate with key.
func SignAuthorization(key crypto.Signer, chainID *big.Int, delegate common.Address, nonce uint64) (*Authorization, error) {
	hash, err := AuthorizationHash(chainID, delegate, nonce)
	if err != nil {
		return nil, err
	}
	sig, err := key.Sign(hash[:])
	if err != nil {
		return nil, fmt.Errorf("sign authorization: %w", err)
	}
	return &Authorization{
		ChainID: new(big.Int).Set(chainID),
		Address: delegate,
		Nonce:   nonce,
		YParity: sig[64],
		R:       new(big.Int).SetBytes(sig[:32]),
		S:       new(big.Int).SetBytes(sig[32:64]),
	}, nil
}

// Authority recovers the account that signed a.
func (a *Authorization) Authority() (common.Address, error) {
	hash, err := AuthorizationHash(a.ChainID, a.Address, a.Nonce)
	if err != nil {
		return common.Address{}, err
	}
	if a.R == nil || a.S == nil || a.YParity > 1 {
		return common.Address{}, fmt.Errorf("malformed authorization signature")
	}
	sig := make([]byte, crypto.SignatureSize)
	a.R.FillBytes(sig[:32])
	a.S.FillBytes(sig[32:64])
	sig[64] = a.YParity
	return crypto.RecoverAddress(hash[:], sig)
}

// MarshalJSON encodes a in the bundler's eip7702Auth format.
func (a *Authorization) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ChainID *hexutil.Big   `json:"chainId"`
		Address common.Address `json:"address"`
		Nonce   hexutil.Uint64 `json:"nonce"`
		YParity hexutil.Uint64 `json:"yParity"`
		R       *hexutil.Big   `json:"r"`
		S       *hexutil.Big   `json:"s"`
	}{
		ChainID: hexBig(a.ChainID),
		Address: a.Address,
		Nonce:   hexutil.Uint64(a.Nonce),
		YParity: hexutil.Uint64(a.YParity),
		R:       hexBig(a.R),
		S:       hexBig(a.S),
	})
}

// DelegationCode returns the code an account has once delegated to
// delegate: 0xef0100 || delegate.
func DelegationCode(delegate common.Address) []byte {
	return append(bytes.Clone(delegationPrefix), delegate.Bytes()...)
}

// IsDelegatedTo reports whether code designates delegate.
func IsDelegatedTo(code []byte, delegate common.Address) bool {
	return bytes.Equal(code, DelegationCode(delegate))
}
