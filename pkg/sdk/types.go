package sdk

// Response types mirror the server's JSON wire shapes. Timestamps are
// RFC 3339 strings; addresses are base58 strings.

// ComplianceConfig is the compliance engine's singleton configuration.
type ComplianceConfig struct {
	Authority         string `json:"authority"`
	Gatekeeper        string `json:"gatekeeper,omitempty"`
	MaxTransferAmount uint64 `json:"max_transfer_amount"`
	CooldownSeconds   int64  `json:"cooldown_seconds"`
	Paused            bool   `json:"paused"`
	TotalWhitelisted  uint64 `json:"total_whitelisted"`
	TotalBlacklisted  uint64 `json:"total_blacklisted"`
}

// WhitelistEntry is one approved investor.
type WhitelistEntry struct {
	Investor     string `json:"investor"`
	InvestorType string `json:"investor_type"`
	Jurisdiction string `json:"jurisdiction"`
	KYCVerified  bool   `json:"kyc_verified"`
	KYCExpiry    string `json:"kyc_expiry"`
	AddedAt      string `json:"added_at"`
	LastTransfer string `json:"last_transfer,omitempty"`
	Active       bool   `json:"active"`
}

// BlacklistEntry is one barred address.
type BlacklistEntry struct {
	Address string `json:"address"`
	Reason  string `json:"reason,omitempty"`
	AddedBy string `json:"added_by"`
	AddedAt string `json:"added_at"`
	Active  bool   `json:"active"`
}

// JurisdictionRule constrains transfers between an ordered pair of
// jurisdictions.
type JurisdictionRule struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Allowed   bool    `json:"allowed"`
	MaxAmount *uint64 `json:"max_amount,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// CheckResult is the outcome of the off-chain transfer pre-check.
type CheckResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// RegistryConfig is the asset registry's singleton configuration.
type RegistryConfig struct {
	Authority      string `json:"authority"`
	PlatformFeeBps uint16 `json:"platform_fee_bps"`
	TotalAssets    uint64 `json:"total_assets"`
}

// Asset is one tokenized real-world asset.
type Asset struct {
	Mint        string `json:"mint"`
	Authority   string `json:"authority"`
	Name        string `json:"name"`
	AssetType   string `json:"asset_type"`
	TotalValue  uint64 `json:"total_value"`
	TotalSupply uint64 `json:"total_supply"`
	MetadataURI string `json:"metadata_uri,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Mint is a token mint's configuration.
type Mint struct {
	Mint              string `json:"mint"`
	Authority         string `json:"authority"`
	PermanentDelegate string `json:"permanent_delegate,omitempty"`
	TransferHook      bool   `json:"transfer_hook"`
	Name              string `json:"name"`
	Symbol            string `json:"symbol"`
	URI               string `json:"uri,omitempty"`
	Decimals          uint8  `json:"decimals"`
	Frozen            bool   `json:"frozen"`
	CreatedAt         string `json:"created_at"`
}

// Escrow is one buyer/seller swap in progress.
type Escrow struct {
	Address       string `json:"address"`
	Buyer         string `json:"buyer"`
	Seller        string `json:"seller"`
	AssetMint     string `json:"asset_mint"`
	PaymentMint   string `json:"payment_mint"`
	AssetAmount   uint64 `json:"asset_amount"`
	PaymentAmount uint64 `json:"payment_amount"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	ExpiresAt     string `json:"expires_at"`
}

// Auction is one open sale of asset tokens.
type Auction struct {
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

// Bid is one bidder's standing on an auction.
type Bid struct {
	Address   string `json:"address"`
	Auction   string `json:"auction"`
	Bidder    string `json:"bidder"`
	Amount    uint64 `json:"amount"`
	Status    string `json:"status"`
	PlacedAt  string `json:"placed_at"`
	UpdatedAt string `json:"updated_at"`
}
