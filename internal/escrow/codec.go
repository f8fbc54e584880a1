package escrow

import (
	"time"

	"custodia/internal/ledger"
)

// Wire encoding for escrow records. Field order mirrors struct declaration
// order and is frozen; see internal/ledger/wire.go.

func (e Escrow) Encode() []byte {
	enc := ledger.NewEncoder(ledger.TagEscrow)
	enc.Addr(e.Address)
	enc.Addr(e.Buyer)
	enc.Addr(e.Seller)
	enc.Addr(e.AssetMint)
	enc.Addr(e.PaymentMint)
	enc.U64(e.AssetAmount)
	enc.U64(e.PaymentAmount)
	enc.U8(uint8(e.Status))
	enc.I64(e.CreatedAt.Unix())
	enc.I64(e.ExpiresAt.Unix())
	return enc.Bytes()
}

func Decode(data []byte) (Escrow, error) {
	d, err := ledger.NewDecoder(ledger.TagEscrow, data)
	if err != nil {
		return Escrow{}, err
	}
	e := Escrow{
		Address:       d.Addr(),
		Buyer:         d.Addr(),
		Seller:        d.Addr(),
		AssetMint:     d.Addr(),
		PaymentMint:   d.Addr(),
		AssetAmount:   d.U64(),
		PaymentAmount: d.U64(),
		Status:        Status(d.U8()),
		CreatedAt:     time.Unix(d.I64(), 0).UTC(),
		ExpiresAt:     time.Unix(d.I64(), 0).UTC(),
	}
	return e, d.Err()
}
