package taskdispatch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/uptrace/bun"

	"github.com/emergent-company/emergent/internal/config"
)

// ErrCredentialUnavailable means the api key is missing, inactive,
// expired, or rate-limited — any condition that should surface as a
// CredentialFailure (§8) rather than a dispatch attempt.
var ErrCredentialUnavailable = errors.New("api credential unavailable")

// apiKeyRecord is the persisted envelope an apiKeyId resolves to. Scoped
// narrowly to what the dispatcher needs; the envelope itself is a signed
// JWT so the raw secret never sits in this table.
type apiKeyRecord struct {
	bun.BaseModel `bun:"table:kb.api_keys,alias:ak"`

	APIKeyID  string     `bun:"api_key_id,pk"`
	UserID    string     `bun:"user_id,notnull"`
	Envelope  string     `bun:"envelope,notnull"`
	Active    bool       `bun:"active,notnull,default:true"`
	ExpiresAt *time.Time `bun:"expires_at"`
}

// CredentialResolver resolves a scheduled task's apiKeyId to the bearer
// token handed to the agent runtime.
type CredentialResolver struct {
	db      *bun.DB
	limiter *keyRateLimiter
}

// NewCredentialResolver creates a new credential resolver.
func NewCredentialResolver(db *bun.DB, appCfg *config.Config) *CredentialResolver {
	return &CredentialResolver{
		db:      db,
		limiter: newKeyRateLimiter(appCfg.CredentialRateLimit.RequestsPerMinute, appCfg.CredentialRateLimit.Burst),
	}
}

// Resolve returns the stored credential envelope for apiKeyId unchanged, or
// ErrCredentialUnavailable if the key is missing, inactive, expired, or
// rate-limited. The envelope is a JWT; it is parsed without signature
// verification only to check its own expiry claim, independent of the
// row's expires_at column.
func (r *CredentialResolver) Resolve(ctx context.Context, apiKeyID string) (string, error) {
	if !r.limiter.allow(apiKeyID) {
		return "", ErrCredentialUnavailable
	}

	var rec apiKeyRecord
	err := r.db.NewSelect().Model(&rec).Where("api_key_id = ?", apiKeyID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrCredentialUnavailable
		}
		return "", fmt.Errorf("failed to look up api key: %w", err)
	}
	if !rec.Active {
		return "", ErrCredentialUnavailable
	}
	if rec.ExpiresAt != nil && rec.ExpiresAt.Before(time.Now()) {
		return "", ErrCredentialUnavailable
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(rec.Envelope, claims); err != nil {
		return "", fmt.Errorf("%w: malformed credential envelope: %v", ErrCredentialUnavailable, err)
	}
	if exp, ok := claims["exp"]; ok {
		if expFloat, ok := exp.(float64); ok && time.Unix(int64(expFloat), 0).Before(time.Now()) {
			return "", ErrCredentialUnavailable
		}
	}

	return rec.Envelope, nil
}
