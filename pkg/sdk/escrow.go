package sdk

import (
	"context"
	"net/http"
	"time"
)

// CreateEscrowParams opens a buyer-initiated escrow.
type CreateEscrowParams struct {
	Buyer         string
	Seller        string
	AssetMint     string
	PaymentMint   string
	AssetAmount   uint64
	PaymentAmount uint64
	ExpiresAt     time.Time
}

func (c *Client) CreateEscrow(ctx context.Context, p CreateEscrowParams) (Escrow, error) {
	body := map[string]any{
		"buyer":          p.Buyer,
		"seller":         p.Seller,
		"asset_mint":     p.AssetMint,
		"payment_mint":   p.PaymentMint,
		"asset_amount":   p.AssetAmount,
		"payment_amount": p.PaymentAmount,
		"expires_at":     p.ExpiresAt.Format(time.RFC3339),
	}
	return do[Escrow](ctx, c, http.MethodPost, "/v1/escrows", body)
}

func (c *Client) Escrow(ctx context.Context, addr string) (Escrow, error) {
	return do[Escrow](ctx, c, http.MethodGet, "/v1/escrows/"+addr, nil)
}

func (c *Client) EscrowsByParty(ctx context.Context, party string) ([]Escrow, error) {
	return do[[]Escrow](ctx, c, http.MethodGet, "/v1/escrows?party="+party, nil)
}

type callerBody struct {
	Caller string `json:"caller"`
}

// DepositPayment moves the buyer's payment into custody.
func (c *Client) DepositPayment(ctx context.Context, buyer, escrowAddr string) (Escrow, error) {
	return do[Escrow](ctx, c, http.MethodPost, "/v1/escrows/"+escrowAddr+"/deposit-payment", callerBody{buyer})
}

// DepositAsset moves the seller's asset tokens into custody.
func (c *Client) DepositAsset(ctx context.Context, seller, escrowAddr string) (Escrow, error) {
	return do[Escrow](ctx, c, http.MethodPost, "/v1/escrows/"+escrowAddr+"/deposit-asset", callerBody{seller})
}

// ReleaseEscrow performs the atomic swap once both sides are funded.
func (c *Client) ReleaseEscrow(ctx context.Context, escrowAddr string) (Escrow, error) {
	return do[Escrow](ctx, c, http.MethodPost, "/v1/escrows/"+escrowAddr+"/release", nil)
}

// RefundEscrow returns vault contents to depositors after expiry.
func (c *Client) RefundEscrow(ctx context.Context, escrowAddr string) (Escrow, error) {
	return do[Escrow](ctx, c, http.MethodPost, "/v1/escrows/"+escrowAddr+"/refund", nil)
}
