package repository

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidPaginationToken is returned when a pagination token cannot be decoded.
	ErrInvalidPaginationToken = errors.New("token is invalid")
)

const (
	// DefaultPaginationLimit is the default number of items per page.
	DefaultPaginationLimit = 15
	maxPaginationLimit     = 100
)

// Paginator is a keyset cursor over (created_at, id), newest first.
type Paginator struct {
	LastID        uuid.UUID
	LastCreatedAt time.Time
}

// Encode encodes the paginator state into a URL-safe token.
func (t Paginator) Encode() string {
	key := fmt.Sprintf("%s,%s", t.LastCreatedAt.UTC().Format(time.RFC3339Nano), t.LastID)
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// DecodePageToken decodes a token produced by Paginator.Encode.
func DecodePageToken(encodedToken string) (*Paginator, error) {
	if encodedToken == "" {
		return nil, ErrInvalidPaginationToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(encodedToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 token: %w", err)
	}
	createdAtPart, idPart, ok := strings.Cut(string(raw), ",")
	if !ok {
		return nil, fmt.Errorf("invalid token format: %w", ErrInvalidPaginationToken)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, createdAtPart)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token timestamp: %w", err)
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token ID: %w", err)
	}

	return &Paginator{
		LastID:        id,
		LastCreatedAt: createdAt,
	}, nil
}
