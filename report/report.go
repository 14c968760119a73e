// Package report carries transaction outcomes to the outside world:
// a notification sink for humans and a history sink for the record.
package report

import (
	"context"
	"time"
)

// Kinds of reported transactions.
const (
	KindApprove   = "Approve"
	KindSwap      = "Swap"
	KindAddLiq    = "AddLiq"
	KindRemoveLiq = "RemoveLiq"
	KindFaucet    = "Faucet"
)

// Severity levels for notifications.
const (
	SeverityOK    = "ok"
	SeverityError = "err"
)

// Entry is one submitted-and-settled transaction.
type Entry struct {
	Kind      string
	TxHash    string
	Summary   string
	Timestamp time.Time
}

// Notifier receives human-facing outcome messages. Implementations must
// be safe for concurrent use; delivery is best-effort and failures are
// never allowed to fail the operation being reported.
type Notifier interface {
	Notify(severity, message, link string)
}

// History records settled transactions for later display.
type History interface {
	Record(ctx context.Context, entry Entry) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(severity, message, link string) {}

// NopHistory drops every record.
type NopHistory struct{}

func (NopHistory) Record(ctx context.Context, entry Entry) error { return nil }
