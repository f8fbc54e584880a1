package sdk

import (
	"context"
	"net/http"
	"time"
)

// InitializeComplianceParams configures the compliance engine once.
type InitializeComplianceParams struct {
	Authority         string `json:"authority"`
	Gatekeeper        string `json:"gatekeeper,omitempty"`
	MaxTransferAmount uint64 `json:"max_transfer_amount"`
	CooldownSeconds   int64  `json:"cooldown_seconds"`
	Paused            bool   `json:"paused"`
}

func (c *Client) InitializeCompliance(ctx context.Context, p InitializeComplianceParams) (ComplianceConfig, error) {
	return do[ComplianceConfig](ctx, c, http.MethodPost, "/v1/compliance/init", p)
}

func (c *Client) ComplianceConfig(ctx context.Context) (ComplianceConfig, error) {
	return do[ComplianceConfig](ctx, c, http.MethodGet, "/v1/compliance/config", nil)
}

// UpdateComplianceConfigParams updates configuration fields; nil fields keep
// their current value.
type UpdateComplianceConfigParams struct {
	Authority         string  `json:"authority"`
	MaxTransferAmount *uint64 `json:"max_transfer_amount,omitempty"`
	CooldownSeconds   *int64  `json:"cooldown_seconds,omitempty"`
	Paused            *bool   `json:"paused,omitempty"`
	Gatekeeper        *string `json:"gatekeeper,omitempty"`
}

func (c *Client) UpdateComplianceConfig(ctx context.Context, p UpdateComplianceConfigParams) (ComplianceConfig, error) {
	return do[ComplianceConfig](ctx, c, http.MethodPost, "/v1/compliance/config", p)
}

// AddToWhitelistParams approves one investor.
type AddToWhitelistParams struct {
	Authority    string    `json:"authority"`
	Investor     string    `json:"investor"`
	InvestorType string    `json:"investor_type"`
	Jurisdiction string    `json:"jurisdiction"`
	KYCVerified  bool      `json:"kyc_verified"`
	KYCExpiry    time.Time `json:"-"`
}

func (c *Client) AddToWhitelist(ctx context.Context, p AddToWhitelistParams) (WhitelistEntry, error) {
	body := map[string]any{
		"authority":     p.Authority,
		"investor":      p.Investor,
		"investor_type": p.InvestorType,
		"jurisdiction":  p.Jurisdiction,
		"kyc_verified":  p.KYCVerified,
		"kyc_expiry":    p.KYCExpiry.Format(time.RFC3339),
	}
	return do[WhitelistEntry](ctx, c, http.MethodPost, "/v1/compliance/whitelist", body)
}

type authorityBody struct {
	Authority string `json:"authority"`
}

func (c *Client) RemoveFromWhitelist(ctx context.Context, authority, investor string) error {
	_, err := do[empty](ctx, c, http.MethodDelete, "/v1/compliance/whitelist/"+investor, authorityBody{authority})
	return err
}

func (c *Client) WhitelistEntry(ctx context.Context, investor string) (WhitelistEntry, error) {
	return do[WhitelistEntry](ctx, c, http.MethodGet, "/v1/compliance/whitelist/"+investor, nil)
}

func (c *Client) Whitelist(ctx context.Context) ([]WhitelistEntry, error) {
	return do[[]WhitelistEntry](ctx, c, http.MethodGet, "/v1/compliance/whitelist", nil)
}

// AddToBlacklistParams bars one address from all transfers.
type AddToBlacklistParams struct {
	Authority string `json:"authority"`
	Address   string `json:"address"`
	Reason    string `json:"reason"`
}

func (c *Client) AddToBlacklist(ctx context.Context, p AddToBlacklistParams) (BlacklistEntry, error) {
	return do[BlacklistEntry](ctx, c, http.MethodPost, "/v1/compliance/blacklist", p)
}

func (c *Client) RemoveFromBlacklist(ctx context.Context, authority, addr string) error {
	_, err := do[empty](ctx, c, http.MethodDelete, "/v1/compliance/blacklist/"+addr, authorityBody{authority})
	return err
}

func (c *Client) BlacklistEntry(ctx context.Context, addr string) (BlacklistEntry, error) {
	return do[BlacklistEntry](ctx, c, http.MethodGet, "/v1/compliance/blacklist/"+addr, nil)
}

func (c *Client) Blacklist(ctx context.Context) ([]BlacklistEntry, error) {
	return do[[]BlacklistEntry](ctx, c, http.MethodGet, "/v1/compliance/blacklist", nil)
}

// AddJurisdictionRuleParams upserts the rule for an ordered jurisdiction pair.
type AddJurisdictionRuleParams struct {
	Authority string  `json:"authority"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Allowed   bool    `json:"allowed"`
	MaxAmount *uint64 `json:"max_amount,omitempty"`
}

func (c *Client) AddJurisdictionRule(ctx context.Context, p AddJurisdictionRuleParams) (JurisdictionRule, error) {
	return do[JurisdictionRule](ctx, c, http.MethodPost, "/v1/compliance/jurisdiction", p)
}

func (c *Client) JurisdictionRules(ctx context.Context) ([]JurisdictionRule, error) {
	return do[[]JurisdictionRule](ctx, c, http.MethodGet, "/v1/compliance/jurisdiction", nil)
}

// RenewKYC extends an investor's KYC expiry; gatekeeper-signed.
func (c *Client) RenewKYC(ctx context.Context, gatekeeper, investor string) (WhitelistEntry, error) {
	body := map[string]string{"gatekeeper": gatekeeper, "investor": investor}
	return do[WhitelistEntry](ctx, c, http.MethodPost, "/v1/compliance/kyc/renew", body)
}

// CheckTransferParams describes the transfer to pre-check.
type CheckTransferParams struct {
	Mint              string `json:"mint"`
	Sender            string `json:"sender"`
	Receiver          string `json:"receiver"`
	SenderCustodial   bool   `json:"sender_custodial,omitempty"`
	ReceiverCustodial bool   `json:"receiver_custodial,omitempty"`
	Amount            uint64 `json:"amount"`
}

// CheckTransfer asks the server to evaluate the transfer gate without side
// effects. A denial is a successful check with Allowed=false.
func (c *Client) CheckTransfer(ctx context.Context, p CheckTransferParams) (CheckResult, error) {
	return do[CheckResult](ctx, c, http.MethodPost, "/v1/compliance/check", p)
}
