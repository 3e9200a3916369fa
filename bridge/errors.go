package bridge

import "errors"

var (
	// ErrNotConnected means no live connection exists; the caller should
	// connect lazily and retry on a later cycle.
	ErrNotConnected = errors.New("not connected")

	// ErrTimeout is a receive deadline expiry. It is non-fatal: the peer may
	// simply be slow to decide, so the connection stays open.
	ErrTimeout = errors.New("receive timeout")

	// ErrClosed means the peer closed the connection.
	ErrClosed = errors.New("connection closed by peer")
)

// Stage names the exchange step that failed.
type Stage string

const (
	StageNotConnected Stage = "not_connected"
	StageEncode       Stage = "encode"
	StageSend         Stage = "send"
	StageReceive      Stage = "receive"
	StageDecode       Stage = "decode"
)

// ExchangeError tags a failure with the stage it happened in. The remaining
// stages of the exchange were not attempted.
type ExchangeError struct {
	Stage Stage
	Cause error
}

func (e *ExchangeError) Error() string {
	return "exchange " + string(e.Stage) + " failed: " + e.Cause.Error()
}

func (e *ExchangeError) Unwrap() error { return e.Cause }
