// Package auction implements an English auction with reserve price and
// synchronous bid replacement. The seller's assets and the current highest
// bid are held in a custody vault until settlement.
package auction

import (
	"encoding/binary"
	"time"

	"custodia/internal/ledger"
)

// MinAuctionDuration is the shortest allowed window between start and end.
const MinAuctionDuration = time.Hour

// ExtensionWindow is the anti-sniping threshold. A bid landing within this
// window before the end time pushes the end time out to a full window from
// the bid, giving rivals a fair chance to respond.
const ExtensionWindow = 10 * time.Minute

// Status is the auction lifecycle state.
type Status uint8

const (
	StatusCreated Status = iota
	StatusActive
	StatusSettled
	StatusCancelled
	StatusFailed
)

var statusNames = map[Status]string{
	StatusCreated:   "created",
	StatusActive:    "active",
	StatusSettled:   "settled",
	StatusCancelled: "cancelled",
	StatusFailed:    "failed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the auction can no longer accept operations.
func (s Status) Terminal() bool {
	return s == StatusSettled || s == StatusCancelled || s == StatusFailed
}

// BidStatus is the per-bidder record state.
type BidStatus uint8

const (
	BidActive BidStatus = iota
	BidOutbid
	BidWon
	BidRefunded
	BidCancelled
)

var bidStatusNames = map[BidStatus]string{
	BidActive:    "active",
	BidOutbid:    "outbid",
	BidWon:       "won",
	BidRefunded:  "refunded",
	BidCancelled: "cancelled",
}

func (s BidStatus) String() string {
	if name, ok := bidStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Auction is one open sale of asset tokens. CurrentBidder is Zero until the
// first bid lands; afterwards the vault holds exactly CurrentBid payment
// tokens plus the seller's vaulted assets.
type Auction struct {
	Address         ledger.Address
	Seller          ledger.Address
	AssetMint       ledger.Address
	PaymentMint     ledger.Address
	AssetAmount     uint64
	StartingPrice   uint64
	ReservePrice    uint64
	MinBidIncrement uint64
	CurrentBid      uint64
	CurrentBidder   ledger.Address
	StartTime       time.Time
	EndTime         time.Time
	Status          Status
	TotalBids       uint64
	CreatedAt       time.Time
}

// Vault is the custody account holding both the vaulted assets and the
// current highest bid's payment.
func (a Auction) Vault() ledger.Address {
	return ledger.Derive(ledger.KindVault, a.Address.Bytes(), []byte("auction"))
}

// Bid is one bidder's standing on an auction. At most one record exists per
// (auction, bidder) pair; a re-bid replaces it.
type Bid struct {
	Address   ledger.Address
	Auction   ledger.Address
	Bidder    ledger.Address
	Amount    uint64
	Status    BidStatus
	PlacedAt  time.Time
	UpdatedAt time.Time
}

// AuctionAddress derives the record address. The creation timestamp is part
// of the key so a seller can run successive auctions for the same mint.
func AuctionAddress(seller, assetMint ledger.Address, createdAt time.Time) ledger.Address {
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(createdAt.Unix()))
	return ledger.Derive(ledger.KindAuction, seller.Bytes(), assetMint.Bytes(), ts[:])
}

// BidAddress derives the bid record address for an (auction, bidder) pair.
func BidAddress(auction, bidder ledger.Address) ledger.Address {
	return ledger.Derive(ledger.KindBid, auction.Bytes(), bidder.Bytes())
}
