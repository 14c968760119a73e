// Package session models the connect-scoped signing context. A session
// is created on connect, cleared on disconnect and rebuilt whole on an
// account or chain change; nothing about it is ambient global state.
package session

import (
	"errors"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// ErrNotConnected is returned by any operation that needs a signer when
// no session is active.
var ErrNotConnected = errors.New("wallet not connected")

// Session carries the active account and its signing capability.
// Immutable once built; an account change produces a new Session.
type Session struct {
	account common.Address
	signer  *bind.TransactOpts
}

// New builds a session for a connected account.
func New(account common.Address, signer *bind.TransactOpts) (*Session, error) {
	if signer == nil {
		return nil, errors.New("session: signer is required")
	}
	if signer.From != (common.Address{}) && signer.From != account {
		return nil, errors.New("session: signer does not match account")
	}
	return &Session{account: account, signer: signer}, nil
}

// Account returns the connected account address.
func (s *Session) Account() common.Address {
	return s.account
}

// Connected reports whether the session can sign.
func (s *Session) Connected() bool {
	return s != nil && s.signer != nil
}

// Signer returns transact options for a submission, or ErrNotConnected.
// The returned opts carry no value; callers set Value per call.
func (s *Session) Signer() (*bind.TransactOpts, error) {
	if !s.Connected() {
		return nil, ErrNotConnected
	}
	opts := *s.signer
	return &opts, nil
}
