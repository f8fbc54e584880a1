package auction

import (
	"time"

	"custodia/internal/ledger"
)

// Wire encoding for auction and bid records. Field order mirrors struct
// declaration order and is frozen; see internal/ledger/wire.go.

func (a Auction) Encode() []byte {
	enc := ledger.NewEncoder(ledger.TagAuction)
	enc.Addr(a.Address)
	enc.Addr(a.Seller)
	enc.Addr(a.AssetMint)
	enc.Addr(a.PaymentMint)
	enc.U64(a.AssetAmount)
	enc.U64(a.StartingPrice)
	enc.U64(a.ReservePrice)
	enc.U64(a.MinBidIncrement)
	enc.U64(a.CurrentBid)
	enc.OptAddr(a.CurrentBidder)
	enc.I64(a.StartTime.Unix())
	enc.I64(a.EndTime.Unix())
	enc.U8(uint8(a.Status))
	enc.U64(a.TotalBids)
	enc.I64(a.CreatedAt.Unix())
	return enc.Bytes()
}

func DecodeAuction(data []byte) (Auction, error) {
	d, err := ledger.NewDecoder(ledger.TagAuction, data)
	if err != nil {
		return Auction{}, err
	}
	a := Auction{
		Address:         d.Addr(),
		Seller:          d.Addr(),
		AssetMint:       d.Addr(),
		PaymentMint:     d.Addr(),
		AssetAmount:     d.U64(),
		StartingPrice:   d.U64(),
		ReservePrice:    d.U64(),
		MinBidIncrement: d.U64(),
		CurrentBid:      d.U64(),
		CurrentBidder:   d.OptAddr(),
		StartTime:       time.Unix(d.I64(), 0).UTC(),
		EndTime:         time.Unix(d.I64(), 0).UTC(),
		Status:          Status(d.U8()),
		TotalBids:       d.U64(),
		CreatedAt:       time.Unix(d.I64(), 0).UTC(),
	}
	return a, d.Err()
}

func (b Bid) Encode() []byte {
	enc := ledger.NewEncoder(ledger.TagBid)
	enc.Addr(b.Address)
	enc.Addr(b.Auction)
	enc.Addr(b.Bidder)
	enc.U64(b.Amount)
	enc.U8(uint8(b.Status))
	enc.I64(b.PlacedAt.Unix())
	enc.I64(b.UpdatedAt.Unix())
	return enc.Bytes()
}

func DecodeBid(data []byte) (Bid, error) {
	d, err := ledger.NewDecoder(ledger.TagBid, data)
	if err != nil {
		return Bid{}, err
	}
	b := Bid{
		Address:   d.Addr(),
		Auction:   d.Addr(),
		Bidder:    d.Addr(),
		Amount:    d.U64(),
		Status:    BidStatus(d.U8()),
		PlacedAt:  time.Unix(d.I64(), 0).UTC(),
		UpdatedAt: time.Unix(d.I64(), 0).UTC(),
	}
	return b, d.Err()
}
