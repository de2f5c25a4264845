package ledger

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKindMatching(t *testing.T) {
	err := NewError(KindNotFound, "credit", "7", "credit lot not found")

	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindUnauthorized))
	assert.Equal(t, KindNotFound, ErrKind(err))

	// Kind matching survives wrapping.
	wrapped := fmt.Errorf("transfer: %w", err)
	assert.True(t, IsKind(wrapped, KindNotFound))

	var structured *Error
	require.True(t, errors.As(wrapped, &structured))
	assert.Equal(t, "credit", structured.Entity)
	assert.Equal(t, "7", structured.ID)
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "credit 7: credit lot not found", NewError(KindNotFound, "credit", "7", "credit lot not found").Error())
	assert.Equal(t, "order: order amount must be positive", NewError(KindInvalidAmount, "order", "", "order amount must be positive").Error())
	assert.Equal(t, "amount overflow", NewError(KindInvalidAmount, "", "", "amount overflow").Error())
}

func TestErrKindOnForeignError(t *testing.T) {
	assert.Equal(t, Kind(""), ErrKind(errors.New("plain")))
	assert.False(t, IsKind(nil, KindNotFound))
}

func TestAddAmount(t *testing.T) {
	sum, err := AddAmount(40, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), sum)

	sum, err = AddAmount(math.MaxUint64-1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), sum)

	_, err = AddAmount(math.MaxUint64, 1)
	assert.True(t, IsKind(err, KindInvalidAmount))
}
