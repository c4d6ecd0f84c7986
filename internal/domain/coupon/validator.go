package coupon

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator resolves a coupon code against a cart subtotal and returns the
// computed discount.
type Validator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Discount, error)
}

// RepoValidator implements Validator on top of a Repository. Codes are
// uppercased before lookup so matching is case-insensitive regardless of how
// the repository stores them.
type RepoValidator struct {
	repo Repository
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo}
}

// Validate checks the code in order: existence, minimum order amount, then
// applies the rule. It returns ErrInvalidCoupon for unknown codes and a
// MinimumNotMetError when the subtotal is below the rule's gate.
func (v *RepoValidator) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Discount, error) {
	rule, err := v.repo.FindByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	return Apply(rule, subtotal)
}

// StaticValidator validates against a fixed in-memory rule set. It backs unit
// tests and deployments without a coupon table.
type StaticValidator struct {
	rules map[string]*Rule
}

// NewStaticValidator builds a StaticValidator from the given rules, keyed by
// uppercased code.
func NewStaticValidator(rules ...Rule) *StaticValidator {
	m := make(map[string]*Rule, len(rules))
	for i := range rules {
		m[strings.ToUpper(rules[i].Code)] = &rules[i]
	}
	return &StaticValidator{rules: m}
}

// Validate implements Validator.
func (v *StaticValidator) Validate(_ context.Context, code string, subtotal decimal.Decimal) (*Discount, error) {
	rule, ok := v.rules[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, ErrInvalidCoupon
	}
	return Apply(rule, subtotal)
}

// DefaultRules returns the built-in storefront coupons.
func DefaultRules() []Rule {
	return []Rule{
		{
			Code:        "SAVE10",
			Type:        TypePercentage,
			Value:       decimal.NewFromInt(10),
			MinSubtotal: decimal.NewFromInt(25),
			Description: "10% off orders over $25",
		},
		{
			Code:        "SAVE20",
			Type:        TypePercentage,
			Value:       decimal.NewFromInt(20),
			MinSubtotal: decimal.NewFromInt(50),
			Description: "20% off orders over $50",
		},
		{
			Code:        "FREESHIP",
			Type:        TypeFreeShipping,
			Value:       decimal.Zero,
			Description: "Free standard shipping",
		},
	}
}
