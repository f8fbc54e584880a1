package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action names one auditable protocol occurrence. Actions are stable API for
// downstream consumers (compliance reporting, dashboards).
type Action string

const (
	ActionComplianceInitialized Action = "compliance.initialized"
	ActionWhitelistAdded        Action = "compliance.whitelist_added"
	ActionWhitelistRemoved      Action = "compliance.whitelist_removed"
	ActionBlacklistAdded        Action = "compliance.blacklist_added"
	ActionBlacklistRemoved      Action = "compliance.blacklist_removed"
	ActionJurisdictionRuleAdded Action = "compliance.jurisdiction_rule_added"
	ActionConfigUpdated         Action = "compliance.config_updated"
	ActionKYCRenewed            Action = "compliance.kyc_renewed"
	ActionTransferValidated     Action = "compliance.transfer_validated"
	ActionTransferDenied        Action = "compliance.transfer_denied"

	ActionAssetRegistered Action = "registry.asset_registered"
	ActionAssetUpdated    Action = "registry.asset_updated"
	ActionAssetActivated  Action = "registry.asset_activated"
	ActionAssetFrozen     Action = "registry.asset_frozen"
	ActionAssetUnfrozen   Action = "registry.asset_unfrozen"
	ActionAssetBurned     Action = "registry.asset_burned"
	ActionMintCreated     Action = "registry.mint_created"
	ActionMintFrozen      Action = "registry.mint_frozen"
	ActionMintUnfrozen    Action = "registry.mint_unfrozen"
	ActionTokensMinted    Action = "registry.tokens_minted"

	ActionEscrowCreated    Action = "escrow.created"
	ActionPaymentDeposited Action = "escrow.payment_deposited"
	ActionAssetDeposited   Action = "escrow.asset_deposited"
	ActionEscrowReleased   Action = "escrow.released"
	ActionEscrowRefunded   Action = "escrow.refunded"

	ActionAuctionCreated   Action = "auction.created"
	ActionBidPlaced        Action = "auction.bid_placed"
	ActionBidRefunded      Action = "auction.bid_refunded"
	ActionBidCancelled     Action = "auction.bid_cancelled"
	ActionAuctionSettled   Action = "auction.settled"
	ActionAuctionFailed    Action = "auction.failed"
	ActionAuctionCancelled Action = "auction.cancelled"
	ActionAuctionExtended  Action = "auction.extended"
)

// Event is one append-only audit record.
type Event struct {
	ID        uuid.UUID
	Action    Action
	Actor     string // who submitted the operation
	Subject   string // the record or counterparty the operation touched
	Amount    uint64 // token amount where applicable
	Reason    string // denial reason or free-text detail
	RequestID string
	Timestamp time.Time
}

// Store is an append-only audit sink.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
