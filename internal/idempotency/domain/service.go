package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

type Service interface {
	// Ensure looks up or creates the ledger row for the derived key. When the
	// row is already completed the stored result is returned and the caller
	// must skip re-execution.
	Ensure(ctx context.Context, req EnsureRequest) (*EnsureResult, error)
	// UpdateStatus transitions the record. Callers must own the record unless
	// Internal is set (webhook and scheduler paths run with elevated trust).
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) error
	// CleanupExpired removes all records older than the retention window.
	CleanupExpired(ctx context.Context) (int64, error)
	// CleanupExpiredForUser removes the user's records older than maxAgeHours,
	// which must be within [1, 168].
	CleanupExpiredForUser(ctx context.Context, userID string, maxAgeHours int) (int64, error)
}

type EnsureRequest struct {
	UserID    string
	Operation Operation
	Amount    int64
	// Context is a caller-supplied discriminator (for example a checkout
	// session ID or a client idempotency token). The key is derived only from
	// caller-stable inputs; it carries no server-side timestamp so replays of
	// the same logical call always map to the same row.
	Context string
	// Key overrides derivation when the caller already holds a ledger key.
	Key string
}

type EnsureResult struct {
	Key string
	// IsDuplicate is set only when the row is completed. A pending or
	// processing row recorded no finished side effect, so the caller may
	// retry safely.
	IsDuplicate    bool
	Status         Status
	ExistingResult map[string]any
}

type UpdateStatusRequest struct {
	UserID             string
	Key                string
	Status             Status
	ExternalPaymentRef *string
	Result             map[string]any
	// Internal bypasses the ownership check.
	Internal bool
}

var (
	ErrInvalidUser      = errors.New("invalid_user")
	ErrInvalidOperation = errors.New("invalid_operation")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrInvalidMaxAge    = errors.New("invalid_max_age")
	ErrInvalidKey       = errors.New("invalid_key")
	ErrNotFound         = errors.New("record_not_found")
	ErrPermissionDenied = errors.New("permission_denied")
)

// DeriveKey builds the deterministic ledger key from caller-stable inputs.
func DeriveKey(userID string, operation Operation, amount int64, context string) string {
	payload := fmt.Sprintf("%s|%s|%d|%s",
		strings.TrimSpace(userID),
		operation,
		amount,
		strings.TrimSpace(context),
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// ValidStatus reports whether value is one of the defined states.
func ValidStatus(value Status) bool {
	switch value {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// ValidOperation reports whether value is a known operation tag.
func ValidOperation(value Operation) bool {
	switch value {
	case OperationPurchaseCredits, OperationChargeContactFee:
		return true
	default:
		return false
	}
}
