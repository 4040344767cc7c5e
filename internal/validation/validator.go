package validation

import (
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with struct-level checks registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterStructValidation(purchaseStructValidation, PurchaseWebhookRequest{})
	return v
}

// purchaseStructValidation rejects order ids that cannot be used as a table key.
func purchaseStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(PurchaseWebhookRequest)
	if req.OrderID != "" && strings.TrimSpace(req.OrderID) == "" {
		sl.ReportError(req.OrderID, "order_id", "OrderID", "order_id_blank", "")
	}
}
