package repository

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginator(t *testing.T) {
	t.Run("should fail empty token", func(t *testing.T) {
		// given
		pageToken := ""

		// when
		paginator, err := DecodePageToken(pageToken)

		// then
		assert.True(t, errors.Is(err, ErrInvalidPaginationToken))
		assert.Nil(t, paginator)
	})

	t.Run("should fail invalid token", func(t *testing.T) {
		// given
		pageToken := "querty12!"

		// when
		paginator, err := DecodePageToken(pageToken)

		// then
		assert.Error(t, err)
		var corruptInputErr base64.CorruptInputError
		assert.True(t, errors.As(err, &corruptInputErr))
		assert.Nil(t, paginator)
	})

	t.Run("should fail token without separator", func(t *testing.T) {
		// given
		pageToken := base64.RawURLEncoding.EncodeToString([]byte("no-separator"))

		// when
		paginator, err := DecodePageToken(pageToken)

		// then
		assert.True(t, errors.Is(err, ErrInvalidPaginationToken))
		assert.Nil(t, paginator)
	})

	t.Run("should succeed", func(t *testing.T) {
		// given
		originalPaginator := Paginator{
			LastID:        uuid.New(),
			LastCreatedAt: time.Now(),
		}

		// when
		encodedToken := originalPaginator.Encode()
		decodedPaginator, err := DecodePageToken(encodedToken)

		// then
		require.NoError(t, err)
		assert.NotContains(t, encodedToken, "=")
		assert.Equal(t, originalPaginator.LastID, decodedPaginator.LastID)
		assert.True(t, originalPaginator.LastCreatedAt.Equal(decodedPaginator.LastCreatedAt))
	})
}

func TestQuery_ApplyPagination(t *testing.T) {
	t.Run("defaults and caps the limit", func(t *testing.T) {
		q := NewQuery()
		require.NoError(t, q.ApplyPagination(0, ""))
		assert.Equal(t, DefaultPaginationLimit, q.Limit)

		require.NoError(t, q.ApplyPagination(1000, ""))
		assert.Equal(t, maxPaginationLimit, q.Limit)
		assert.Nil(t, q.Paginator)
	})

	t.Run("rejects a corrupt token", func(t *testing.T) {
		q := NewQuery()
		err := q.ApplyPagination(10, "%%%")
		require.Error(t, err)
		assert.Equal(t, "invalid page token", err.Error())
	})

	t.Run("keeps a valid cursor", func(t *testing.T) {
		p := Paginator{LastID: uuid.New(), LastCreatedAt: time.Now()}
		q := NewQuery().With(NameField, "Ring A")
		require.NoError(t, q.ApplyPagination(5, p.Encode()))
		assert.Equal(t, 5, q.Limit)
		require.NotNil(t, q.Paginator)
		assert.Equal(t, p.LastID, q.Paginator.LastID)
		assert.Equal(t, "Ring A", q.Values[NameField])
	})
}
