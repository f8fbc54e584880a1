package sdk

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// CreateAuctionParams opens a seller-initiated auction.
type CreateAuctionParams struct {
	Seller          string
	AssetMint       string
	PaymentMint     string
	AssetAmount     uint64
	StartingPrice   uint64
	ReservePrice    uint64
	MinBidIncrement uint64
	StartTime       time.Time
	EndTime         time.Time
}

func (c *Client) CreateAuction(ctx context.Context, p CreateAuctionParams) (Auction, error) {
	body := map[string]any{
		"seller":            p.Seller,
		"asset_mint":        p.AssetMint,
		"payment_mint":      p.PaymentMint,
		"asset_amount":      p.AssetAmount,
		"starting_price":    p.StartingPrice,
		"reserve_price":     p.ReservePrice,
		"min_bid_increment": p.MinBidIncrement,
		"start_time":        p.StartTime.Format(time.RFC3339),
		"end_time":          p.EndTime.Format(time.RFC3339),
	}
	return do[Auction](ctx, c, http.MethodPost, "/v1/auctions", body)
}

func (c *Client) Auction(ctx context.Context, addr string) (Auction, error) {
	return do[Auction](ctx, c, http.MethodGet, "/v1/auctions/"+addr, nil)
}

// AuctionFilter narrows Auctions listings; empty fields match everything.
type AuctionFilter struct {
	Seller string
	Status string
}

func (c *Client) Auctions(ctx context.Context, filter AuctionFilter) ([]Auction, error) {
	q := url.Values{}
	if filter.Seller != "" {
		q.Set("seller", filter.Seller)
	}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	path := "/v1/auctions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return do[[]Auction](ctx, c, http.MethodGet, path, nil)
}

// PlaceBid vaults the bidder's payment. Any previous high bid is refunded in
// the same transaction server-side.
func (c *Client) PlaceBid(ctx context.Context, bidder, auctionAddr string, amount uint64) (Bid, error) {
	body := map[string]any{"bidder": bidder, "amount": amount}
	return do[Bid](ctx, c, http.MethodPost, "/v1/auctions/"+auctionAddr+"/bids", body)
}

// CancelBid withdraws a non-highest bid.
func (c *Client) CancelBid(ctx context.Context, bidder, auctionAddr string) (Bid, error) {
	return do[Bid](ctx, c, http.MethodDelete, "/v1/auctions/"+auctionAddr+"/bids/"+bidder, nil)
}

func (c *Client) AuctionBid(ctx context.Context, auctionAddr, bidder string) (Bid, error) {
	return do[Bid](ctx, c, http.MethodGet, "/v1/auctions/"+auctionAddr+"/bids/"+bidder, nil)
}

func (c *Client) AuctionBids(ctx context.Context, auctionAddr string) ([]Bid, error) {
	return do[[]Bid](ctx, c, http.MethodGet, "/v1/auctions/"+auctionAddr+"/bids", nil)
}

// SettleAuction closes an auction after its end time.
func (c *Client) SettleAuction(ctx context.Context, auctionAddr string) (Auction, error) {
	return do[Auction](ctx, c, http.MethodPost, "/v1/auctions/"+auctionAddr+"/settle", nil)
}

// CancelAuction withdraws an auction before any bid.
func (c *Client) CancelAuction(ctx context.Context, seller, auctionAddr string) (Auction, error) {
	return do[Auction](ctx, c, http.MethodPost, "/v1/auctions/"+auctionAddr+"/cancel", callerBody{seller})
}

// ExtendAuction pushes the end time later while the auction runs.
func (c *Client) ExtendAuction(ctx context.Context, seller, auctionAddr string, newEnd time.Time) (Auction, error) {
	body := map[string]any{"caller": seller, "end_time": newEnd.Format(time.RFC3339)}
	return do[Auction](ctx, c, http.MethodPost, "/v1/auctions/"+auctionAddr+"/extend", body)
}
