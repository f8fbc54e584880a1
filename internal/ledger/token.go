package ledger

import (
	"context"
	"fmt"
	"sync"

	domainerrors "custodia/pkg/domain-errors"
)

// TransferParties describes one token movement to the compliance hook. The
// custodial flags mark protocol-owned vault legs so party-level checks apply
// to the beneficial counterparty only.
type TransferParties struct {
	Mint              Address
	Sender            Address
	Receiver          Address
	SenderCustodial   bool
	ReceiverCustodial bool
	Amount            uint64
}

// Authorizer is the compliance gate bound to a mint. It is invoked
// synchronously on every transfer of that mint before any balance changes
// commit; an error aborts the whole transaction.
type Authorizer interface {
	AuthorizeTransfer(ctx context.Context, t TransferParties) error
}

type mintState struct {
	decimals uint8
	frozen   bool
	supply   uint64
	hook     Authorizer
}

// TokenLedger is the in-process token-movement substrate. It owns every
// balance; Txn.Transfer is the only way funds move, which is what makes the
// hook non-bypassable. A single mutex serializes transactions, matching the
// substrate's write-conflict serialization guarantee.
type TokenLedger struct {
	mu        sync.Mutex
	mints     map[Address]*mintState
	balances  map[Address]map[Address]uint64
	custodial map[Address]bool
}

func NewTokenLedger() *TokenLedger {
	return &TokenLedger{
		mints:     make(map[Address]*mintState),
		balances:  make(map[Address]map[Address]uint64),
		custodial: make(map[Address]bool),
	}
}

// CreateMint registers a token type. Hook binding is separate and optional;
// payment mints stay unbound, asset mints are bound at configuration time.
func (l *TokenLedger) CreateMint(mint Address, decimals uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.mints[mint]; ok {
		return domainerrors.New(domainerrors.CodeConflict, "mint already exists")
	}
	l.mints[mint] = &mintState{decimals: decimals}
	l.balances[mint] = make(map[Address]uint64)
	return nil
}

// BindTransferHook attaches the compliance gate to a mint. The binding is
// permanent: holders rely on the gate never being silently removed.
func (l *TokenLedger) BindTransferHook(mint Address, hook Authorizer) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	ms, ok := l.mints[mint]
	if !ok {
		return domainerrors.New(domainerrors.CodeNotFound, "unknown mint")
	}
	if ms.hook != nil {
		return domainerrors.New(domainerrors.CodeHookBound, "transfer hook already bound")
	}
	ms.hook = hook
	return nil
}

// HookBound reports whether a compliance gate is attached to the mint.
func (l *TokenLedger) HookBound(mint Address) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	ms, ok := l.mints[mint]
	return ok && ms.hook != nil
}

// SetMintFrozen flips the mint-wide freeze. Frozen mints reject every
// movement, including minting.
func (l *TokenLedger) SetMintFrozen(mint Address, frozen bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	ms, ok := l.mints[mint]
	if !ok {
		return domainerrors.New(domainerrors.CodeNotFound, "unknown mint")
	}
	ms.frozen = frozen
	return nil
}

// RegisterCustodial marks an address as a protocol-owned vault. Vault legs
// pass their custodial flag to the hook instead of being party-checked.
func (l *TokenLedger) RegisterCustodial(addr Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.custodial[addr] = true
}

// Balance returns the holder's balance for a mint.
func (l *TokenLedger) Balance(mint, holder Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[mint][holder]
}

// Supply returns the minted supply for a mint.
func (l *TokenLedger) Supply(mint Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	ms, ok := l.mints[mint]
	if !ok {
		return 0
	}
	return ms.supply
}

// undo reverses one committed balance mutation during rollback.
type undo func()

// Txn is an in-flight atomic transaction. All operations succeed together or
// none take effect; an error from the closure (or from any operation) rolls
// back every prior mutation in reverse order.
type Txn struct {
	l       *TokenLedger
	ctx     context.Context
	journal []undo
}

// Atomic runs fn under the ledger lock. Operations on the Txn observe a
// consistent just-prior state; any error restores it exactly.
func (l *TokenLedger) Atomic(ctx context.Context, fn func(tx *Txn) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx := &Txn{l: l, ctx: ctx}
	if err := fn(tx); err != nil {
		for i := len(tx.journal) - 1; i >= 0; i-- {
			tx.journal[i]()
		}
		return err
	}
	return nil
}

// Mint credits newly-issued tokens to a holder.
func (tx *Txn) Mint(mint, to Address, amount uint64) error {
	ms, ok := tx.l.mints[mint]
	if !ok {
		return domainerrors.New(domainerrors.CodeNotFound, "unknown mint")
	}
	if ms.frozen {
		return domainerrors.New(domainerrors.CodeMintFrozen, "mint is frozen")
	}
	tx.l.balances[mint][to] += amount
	ms.supply += amount
	tx.journal = append(tx.journal, func() {
		tx.l.balances[mint][to] -= amount
		ms.supply -= amount
	})
	return nil
}

// Transfer moves tokens between accounts. For hook-bound mints the bound
// Authorizer runs first; its rejection aborts the transaction before any
// balance changes. This call site is the interception point: there is no
// other path that mutates balances.
func (tx *Txn) Transfer(mint, from, to Address, amount uint64) error {
	ms, ok := tx.l.mints[mint]
	if !ok {
		return domainerrors.New(domainerrors.CodeNotFound, "unknown mint")
	}
	if ms.frozen {
		return domainerrors.New(domainerrors.CodeMintFrozen, "mint is frozen")
	}
	if tx.l.balances[mint][from] < amount {
		return domainerrors.New(domainerrors.CodeInsufficientFunds,
			fmt.Sprintf("balance %d below transfer amount %d", tx.l.balances[mint][from], amount))
	}
	if ms.hook != nil {
		parties := TransferParties{
			Mint:              mint,
			Sender:            from,
			Receiver:          to,
			SenderCustodial:   tx.l.custodial[from],
			ReceiverCustodial: tx.l.custodial[to],
			Amount:            amount,
		}
		if err := ms.hook.AuthorizeTransfer(tx.ctx, parties); err != nil {
			return err
		}
	}
	tx.l.balances[mint][from] -= amount
	tx.l.balances[mint][to] += amount
	tx.journal = append(tx.journal, func() {
		tx.l.balances[mint][from] += amount
		tx.l.balances[mint][to] -= amount
	})
	return nil
}

// Balance reads a balance inside the transaction.
func (tx *Txn) Balance(mint, holder Address) uint64 {
	return tx.l.balances[mint][holder]
}
