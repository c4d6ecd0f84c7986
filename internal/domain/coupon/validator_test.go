package coupon

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCouponRepo struct {
	rule     *Rule
	err      error
	lastCode string
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*Rule, error) {
	m.lastCode = code
	if m.err != nil {
		return nil, m.err
	}
	return m.rule, nil
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func save10() *Rule {
	return &Rule{
		Code:        "SAVE10",
		Type:        TypePercentage,
		Value:       decimal.NewFromInt(10),
		MinSubtotal: decimal.NewFromInt(25),
		Description: "10% off orders over $25",
	}
}

func TestRepoValidator_Validate(t *testing.T) {
	tests := []struct {
		name       string
		repo       *mockCouponRepo
		code       string
		subtotal   decimal.Decimal
		wantAmount decimal.Decimal
		wantFree   bool
		wantErr    error
	}{
		{
			name:       "percentage discount",
			repo:       &mockCouponRepo{rule: save10()},
			code:       "SAVE10",
			subtotal:   d("30.00"),
			wantAmount: d("3.00"),
		},
		{
			name:     "below minimum",
			repo:     &mockCouponRepo{rule: save10()},
			code:     "SAVE10",
			subtotal: d("20.00"),
			wantErr:  &MinimumNotMetError{},
		},
		{
			name:     "unknown code",
			repo:     &mockCouponRepo{err: ErrInvalidCoupon},
			code:     "BOGUS",
			subtotal: d("100.00"),
			wantErr:  ErrInvalidCoupon,
		},
		{
			name: "free shipping has no amount",
			repo: &mockCouponRepo{rule: &Rule{
				Code: "FREESHIP",
				Type: TypeFreeShipping,
			}},
			code:       "FREESHIP",
			subtotal:   d("10.00"),
			wantAmount: decimal.Zero,
			wantFree:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewRepoValidator(tt.repo)
			got, err := v.Validate(context.Background(), tt.code, tt.subtotal)

			if tt.wantErr != nil {
				require.Error(t, err)
				var minErr *MinimumNotMetError
				if errors.As(tt.wantErr, &minErr) {
					require.ErrorAs(t, err, &minErr)
				} else {
					require.ErrorIs(t, err, tt.wantErr)
				}
				return
			}

			require.NoError(t, err)
			assert.True(t, tt.wantAmount.Equal(got.Amount), "amount: want %s got %s", tt.wantAmount, got.Amount)
			assert.Equal(t, tt.wantFree, got.FreeShipping)
		})
	}
}

func TestRepoValidator_UppercasesCode(t *testing.T) {
	repo := &mockCouponRepo{rule: save10()}
	v := NewRepoValidator(repo)

	_, err := v.Validate(context.Background(), "  save10 ", d("30.00"))
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", repo.lastCode)
}

func TestMinimumNotMetError_Message(t *testing.T) {
	err := &MinimumNotMetError{Code: "SAVE20", Minimum: decimal.NewFromInt(50)}
	assert.Equal(t, "Minimum order amount of $50.00 required", err.Error())
}

func TestStaticValidator_DefaultRules(t *testing.T) {
	v := NewStaticValidator(DefaultRules()...)

	// SAVE10 at $30 yields $3.00.
	got, err := v.Validate(context.Background(), "SAVE10", d("30.00"))
	require.NoError(t, err)
	assert.True(t, d("3.00").Equal(got.Amount))

	// SAVE10 at $20 fails the minimum.
	_, err = v.Validate(context.Background(), "SAVE10", d("20.00"))
	var minErr *MinimumNotMetError
	require.ErrorAs(t, err, &minErr)
	assert.True(t, d("25").Equal(minErr.Minimum))

	// SAVE20 at $60 yields $12.00.
	got, err = v.Validate(context.Background(), "save20", d("60.00"))
	require.NoError(t, err)
	assert.True(t, d("12.00").Equal(got.Amount))

	// FREESHIP has no minimum.
	got, err = v.Validate(context.Background(), "FREESHIP", d("1.00"))
	require.NoError(t, err)
	assert.True(t, got.FreeShipping)
	assert.True(t, got.Amount.IsZero())

	// Unknown code.
	_, err = v.Validate(context.Background(), "NOPE", d("100.00"))
	require.ErrorIs(t, err, ErrInvalidCoupon)
}
