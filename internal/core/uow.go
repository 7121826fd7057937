package core

import (
	"context"
	"fmt"
)

// State is the lifecycle state of a unit of work.
type State int

const (
	StateStarted State = iota
	StateInProgress
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateStarted:
		return "started"
	case StateInProgress:
		return "in_progress"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRolledBack
}

func (s State) canMoveTo(next State) bool {
	switch s {
	case StateStarted:
		return next == StateInProgress || next == StateRolledBack
	case StateInProgress:
		return next == StateCommitted || next == StateRolledBack
	}
	return false
}

// UnitOfWork wraps one transaction and enforces
// Started -> InProgress -> Committed | RolledBack.
//
// Always pair BeginUnit with a deferred Close:
//
//	uow, err := BeginUnit(ctx, store)
//	if err != nil {
//	    return err
//	}
//	defer uow.Close(ctx) // rolls back unless committed
type UnitOfWork struct {
	tx    Tx
	state State
}

// BeginUnit opens a transaction on store.
func BeginUnit(ctx context.Context, store Store) (*UnitOfWork, error) {
	tx, err := store.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin", err)
	}
	return &UnitOfWork{tx: tx, state: StateStarted}, nil
}

// Tx returns the underlying transaction.
func (u *UnitOfWork) Tx() Tx { return u.tx }

// State returns the current state.
func (u *UnitOfWork) State() State { return u.state }

func (u *UnitOfWork) moveTo(next State) error {
	if !u.state.canMoveTo(next) {
		if u.state.Terminal() {
			return fmt.Errorf("%w: %s -> %s", ErrTerminalState, u.state, next)
		}
		return fmt.Errorf("invalid transition %s -> %s", u.state, next)
	}
	u.state = next
	return nil
}

// Start marks the unit as in progress.
func (u *UnitOfWork) Start() error {
	return u.moveTo(StateInProgress)
}

// Commit commits the transaction. A failed commit leaves the unit rolled back.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if err := u.moveTo(StateCommitted); err != nil {
		return err
	}
	if err := u.tx.Commit(ctx); err != nil {
		u.state = StateRolledBack
		_ = u.tx.Rollback(context.WithoutCancel(ctx))
		return storeErr("commit", err)
	}
	return nil
}

// Rollback undoes every change made through the unit.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if err := u.moveTo(StateRolledBack); err != nil {
		return err
	}
	if err := u.tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		return storeErr("rollback", err)
	}
	return nil
}

// Close rolls back unless the unit already reached a terminal state.
// It is safe to call more than once.
func (u *UnitOfWork) Close(ctx context.Context) error {
	if u.state.Terminal() {
		return nil
	}
	return u.Rollback(ctx)
}
