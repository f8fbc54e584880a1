package handler

import (
	"time"

	"custodia/internal/auction"
)

type auctionDTO struct {
	Address         string `json:"address"`
	Seller          string `json:"seller"`
	AssetMint       string `json:"asset_mint"`
	PaymentMint     string `json:"payment_mint"`
	AssetAmount     uint64 `json:"asset_amount"`
	StartingPrice   uint64 `json:"starting_price"`
	ReservePrice    uint64 `json:"reserve_price"`
	MinBidIncrement uint64 `json:"min_bid_increment"`
	CurrentBid      uint64 `json:"current_bid"`
	CurrentBidder   string `json:"current_bidder,omitempty"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Status          string `json:"status"`
	TotalBids       uint64 `json:"total_bids"`
	CreatedAt       string `json:"created_at"`
}

func auctionResponse(a auction.Auction) auctionDTO {
	return auctionDTO{
		Address:         a.Address.String(),
		Seller:          a.Seller.String(),
		AssetMint:       a.AssetMint.String(),
		PaymentMint:     a.PaymentMint.String(),
		AssetAmount:     a.AssetAmount,
		StartingPrice:   a.StartingPrice,
		ReservePrice:    a.ReservePrice,
		MinBidIncrement: a.MinBidIncrement,
		CurrentBid:      a.CurrentBid,
		CurrentBidder:   a.CurrentBidder.String(),
		StartTime:       a.StartTime.Format(time.RFC3339),
		EndTime:         a.EndTime.Format(time.RFC3339),
		Status:          a.Status.String(),
		TotalBids:       a.TotalBids,
		CreatedAt:       a.CreatedAt.Format(time.RFC3339),
	}
}

type bidDTO struct {
	Address   string `json:"address"`
	Auction   string `json:"auction"`
	Bidder    string `json:"bidder"`
	Amount    uint64 `json:"amount"`
	Status    string `json:"status"`
	PlacedAt  string `json:"placed_at"`
	UpdatedAt string `json:"updated_at"`
}

func bidResponse(b auction.Bid) bidDTO {
	return bidDTO{
		Address:   b.Address.String(),
		Auction:   b.Auction.String(),
		Bidder:    b.Bidder.String(),
		Amount:    b.Amount,
		Status:    b.Status.String(),
		PlacedAt:  b.PlacedAt.Format(time.RFC3339),
		UpdatedAt: b.UpdatedAt.Format(time.RFC3339),
	}
}

func parseStatus(raw string) (auction.Status, bool) {
	switch raw {
	case "created":
		return auction.StatusCreated, true
	case "active":
		return auction.StatusActive, true
	case "settled":
		return auction.StatusSettled, true
	case "cancelled":
		return auction.StatusCancelled, true
	case "failed":
		return auction.StatusFailed, true
	default:
		return 0, false
	}
}
