package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Dispatch error taxonomy. Handlers map these onto HTTP statuses; everything
// here is scoped to a single call, never fatal to the process.
var (
	// ErrGuestNotFound: terminal, the guest does not exist.
	ErrGuestNotFound = errors.New("guest not found")
	// ErrContactUpdateFailed: the contact write raced a delete; retryable.
	ErrContactUpdateFailed = errors.New("contact update failed")
	// ErrLockTimeout: row-lock contention, either a wait that exceeded the
	// configured ceiling or a transaction chosen as a deadlock victim;
	// retryable with backoff.
	ErrLockTimeout = errors.New("lock wait timeout")
)

const (
	ChannelEmail     = "email"
	ChannelMessaging = "messaging"
)

// MissingPayloadError reports channel payload fields the caller left out.
// Raised before any external call is made for the channel.
type MissingPayloadError struct {
	Channel string
	Fields  []string
}

func (e *MissingPayloadError) Error() string {
	return fmt.Sprintf("missing %s payload fields: %s", e.Channel, strings.Join(e.Fields, ", "))
}

// DeliveryError wraps a provider failure for one channel. The whole call
// fails but sub-commits from earlier channels stand; retrying the call is
// safe because flags are only set on confirmed success.
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Postgres reports an exceeded lock_timeout as SQLSTATE 55P03 and a deadlock
// victim as 40P01; both land in the same retryable contention class.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "55P03" || pgErr.Code == "40P01") {
		return fmt.Errorf("%w: %v", ErrLockTimeout, err)
	}
	return err
}
