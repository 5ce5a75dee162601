package provisions

import (
	"errors"
	"strings"

	"wmoned/internal/registry"
)

// prefixEncoder is a reversible test encoder.
type prefixEncoder struct{}

func (prefixEncoder) Encrypt(plain string) (string, error) {
	if plain == "unencryptable" {
		return "", errors.New("boom")
	}
	return "enc-" + plain, nil
}

func (prefixEncoder) Decrypt(token string) (string, error) {
	plain, ok := strings.CutPrefix(token, "enc-")
	if !ok {
		return "", errors.New("invalid token")
	}
	return plain, nil
}

func ptr[T any](v T) *T { return &v }

func date(s string) *registry.Date {
	d := registry.MustParseDate(s)
	return &d
}

// allocated builds an allocated product with an assigned product block.
func allocated(outcome, category, deliveryForm string, actual bool) registry.AllocatedProduct {
	return registry.AllocatedProduct{
		Outcome: outcome,
		Product: &registry.Product{
			Description:  ptr("Rolstoel"),
			CategoryCode: ptr(category),
		},
		AssignedProduct: &registry.AssignedProduct{
			ValidFrom:    date("2021-01-01"),
			Actual:       ptr(actual),
			DeliveryForm: ptr(deliveryForm),
			Supplier:     &registry.Supplier{Description: ptr("Welzorg")},
		},
	}
}

func application(decisionDate string, products ...registry.AllocatedProduct) registry.Application {
	return registry.Application{
		RequestDate: date("2020-12-01"),
		Decision: &registry.Decision{
			IssueDate:         date(decisionDate),
			AllocatedProducts: products,
		},
	}
}
