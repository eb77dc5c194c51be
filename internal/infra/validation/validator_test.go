package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/shared/faults"
)

type sampleCommand struct {
	ApartmentID string `validate:"required"`
	Email       string `validate:"required,email"`
	PriceCents  int64  `validate:"gt=0"`
}

func TestValidateReportsEveryField(t *testing.T) {
	err := New().Validate(context.Background(), sampleCommand{Email: "nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrValidation)
	assert.Contains(t, err.Error(), "apartment_id is required")
	assert.Contains(t, err.Error(), "email must be an email address")
	assert.Contains(t, err.Error(), "price_cents must be greater than 0")
}

func TestValidateIgnoresNonStructs(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(context.Background(), nil))
	assert.NoError(t, v.Validate(context.Background(), "text"))
	assert.NoError(t, v.Validate(context.Background(), &sampleCommand{ApartmentID: "a", Email: "a@b.fr", PriceCents: 1}))
}
