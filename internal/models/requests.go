package models

// CreateGenerationRequest starts a video or image generation job.
type CreateGenerationRequest struct {
	Kind    GenerationKind `json:"kind" validate:"required,oneof=video image"`
	Tool    string         `json:"tool" validate:"required"`
	Prompt  string         `json:"prompt" validate:"required,min=1,max=4000"`
	Options map[string]any `json:"options"`
}

// PurchaseSubscriptionRequest buys a monthly plan.
type PurchaseSubscriptionRequest struct {
	Plan      string `json:"plan" validate:"required,sub_plan"`
	AutoRenew *bool  `json:"auto_renew"`
}

// CreateTopupRequest buys a one-off credit package.
type CreateTopupRequest struct {
	Package string `json:"package" validate:"required,topup_package"`
}

// CheckoutResult is returned to the client after a payment intent is
// created; the client follows RedirectURL to the gateway checkout page.
type CheckoutResult struct {
	PaymentID   uint   `json:"payment_id"`
	OrderID     string `json:"order_id"`
	RedirectURL string `json:"redirect_url"`
}
