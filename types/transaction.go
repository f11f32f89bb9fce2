package types

import (
	"github.com/Stoner19/node/crypto"
	"github.com/Stoner19/node/encoding/wirebin"
)

// WalletId is the compact 32-bit alias WalletsIds assigns to a public
// key on its first appearance.
type WalletId uint32

// InnerID is the sender-assigned, per-sender-monotonic nonce that
// distinguishes otherwise identical transactions. Only the low 46 bits
// are meaningful; the remainder is reserved.
type InnerID uint64

// Mask applies the useful-bit mask to raw, returning the effective inner
// id used for ordering and replay checks.
func (id InnerID) Mask() InnerID {
	const usefulBits = 46
	return id & (1<<usefulBits - 1)
}

// UserField is a single keyed blob attached to a transaction. Field 0 is
// reserved for smart-contract payloads (deploy/call/state-update); all
// other keys are opaque to the core.
type UserField struct {
	Key   uint8
	Value []byte
}

// SmartContractInvocation is the payload carried in user-field 0 that
// distinguishes a plain transfer from a contract deploy, call, or
// state-update. The core never interprets ByteCode/Method/Params; it
// only uses their presence to classify the transaction.
type SmartContractInvocation struct {
	ByteCode []byte
	Method   string
	Params   []byte
	NewState []byte
}

// TransactionKind classifies a transaction by its user-field 0 payload.
type TransactionKind int

const (
	// KindTransfer is a plain value transfer with no user-field[0].
	KindTransfer TransactionKind = iota
	// KindContractDeploy carries a SmartContractInvocation with an empty
	// Method.
	KindContractDeploy
	// KindContractCall carries a SmartContractInvocation with a
	// non-empty Method.
	KindContractCall
	// KindContractStateUpdate carries a SmartContractInvocation with a
	// non-empty NewState.
	KindContractStateUpdate
)

// Transaction is the atomic unit of value transfer and, optionally,
// smart-contract interaction.
type Transaction struct {
	Source    crypto.PublicKey
	Target    crypto.PublicKey
	Amount    Amount
	InnerID   InnerID
	MaxFee    Amount
	Signature crypto.Signature
	UserFields []UserField
}

// SigningHash returns the content hash signed over by Signature: every
// field except the signature itself.
func (tx Transaction) SigningHash() crypto.Hash {
	b, err := wirebin.MarshalAll(tx.Source, tx.Target, tx.Amount, uint64(tx.InnerID), tx.MaxFee, tx.UserFields)
	if err != nil {
		// encoding a plain value struct cannot fail
		panic(err)
	}
	return crypto.HashBytes(b)
}

// VerifySignature reports whether Signature is a valid signature by
// Source over SigningHash.
func (tx Transaction) VerifySignature() bool {
	return crypto.VerifyHash(tx.SigningHash(), tx.Source, tx.Signature) == nil
}

// Kind classifies the transaction per user-field[0]'s shape.
func (tx Transaction) Kind() TransactionKind {
	sci, ok := tx.smartContractInvocation()
	if !ok {
		return KindTransfer
	}
	switch {
	case len(sci.NewState) > 0:
		return KindContractStateUpdate
	case sci.Method != "":
		return KindContractCall
	default:
		return KindContractDeploy
	}
}

func (tx Transaction) smartContractInvocation() (SmartContractInvocation, bool) {
	for _, f := range tx.UserFields {
		if f.Key != 0 {
			continue
		}
		var sci SmartContractInvocation
		if err := wirebin.Unmarshal(f.Value, &sci); err != nil {
			return SmartContractInvocation{}, false
		}
		return sci, true
	}
	return SmartContractInvocation{}, false
}

// TotalDebit is the amount a successful transaction removes from the
// source wallet's balance: Amount plus the fee actually charged, capped
// at MaxFee.
func (tx Transaction) TotalDebit(fee Amount) Amount {
	if fee.Cmp(tx.MaxFee) > 0 {
		fee = tx.MaxFee
	}
	return tx.Amount.Add(fee)
}
