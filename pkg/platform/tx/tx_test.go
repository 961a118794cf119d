package tx

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("nil transaction leaves context untouched", func(t *testing.T) {
		got := WithTx(ctx, nil)
		_, ok := From(got)
		assert.False(t, ok)
	})

	t.Run("stored transaction is returned", func(t *testing.T) {
		want := &sql.Tx{}
		got, ok := From(WithTx(ctx, want))
		assert.True(t, ok)
		assert.Same(t, want, got)
	})
}

func TestRunJoinsOpenTransaction(t *testing.T) {
	ctx := WithTx(context.Background(), &sql.Tx{})
	called := false

	// db is never touched when ctx already carries a transaction.
	err := Run(ctx, nil, func(inner context.Context) error {
		called = true
		_, ok := From(inner)
		assert.True(t, ok)
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, called)
}
