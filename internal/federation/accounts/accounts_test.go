package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "trustbridge/pkg/domain-errors"
)

func TestResolve(t *testing.T) {
	r := NewInMemoryResolver(nil)
	ctx := context.Background()

	first, err := r.Resolve(ctx, "idp-b", "alice")
	require.NoError(t, err)
	again, err := r.Resolve(ctx, "idp-b", "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	other, err := r.Resolve(ctx, "idp-c", "alice")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID, "subjects are scoped to their home provider")

	_, err = r.Resolve(ctx, "idp-b", " ")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
