package escrow

import (
	"time"

	"custodia/internal/ledger"
)

// Status is the escrow lifecycle state. Released and Refunded are terminal.
type Status uint8

const (
	StatusCreated Status = iota
	StatusPaymentDeposited
	StatusFullyFunded
	StatusReleased
	StatusRefunded
	StatusDisputed
)

var statusNames = map[Status]string{
	StatusCreated:          "created",
	StatusPaymentDeposited: "payment_deposited",
	StatusFullyFunded:      "fully_funded",
	StatusReleased:         "released",
	StatusRefunded:         "refunded",
	StatusDisputed:         "disputed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the escrow can no longer move funds.
func (s Status) Terminal() bool {
	return s == StatusReleased || s == StatusRefunded
}

// Escrow is one buyer/seller atomic swap in progress. At most one live
// escrow exists per (buyer, asset mint) pair.
type Escrow struct {
	Address       ledger.Address
	Buyer         ledger.Address
	Seller        ledger.Address
	AssetMint     ledger.Address
	PaymentMint   ledger.Address
	AssetAmount   uint64
	PaymentAmount uint64
	Status        Status
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// PaymentVault is the custody account holding the buyer's payment.
func (e Escrow) PaymentVault() ledger.Address {
	return ledger.Derive(ledger.KindVault, e.Address.Bytes(), []byte("payment"))
}

// AssetVault is the custody account holding the seller's asset tokens.
func (e Escrow) AssetVault() ledger.Address {
	return ledger.Derive(ledger.KindVault, e.Address.Bytes(), []byte("asset"))
}

// EscrowAddress derives the record address for a (buyer, asset mint) pair.
func EscrowAddress(buyer, assetMint ledger.Address) ledger.Address {
	return ledger.Derive(ledger.KindEscrow, buyer.Bytes(), assetMint.Bytes())
}
