package domain

// PaymentMarker tags invoices created by this module so its events can be
// told apart from other consumers of the shared completion stream.
const PaymentMarker = "paidreviews"

// Invoice is the gateway's answer to a create-invoice request.
type Invoice struct {
	PaymentHash    string
	PaymentRequest string // BOLT11
}

// PaymentEvent is one settled invoice from the gateway's completion stream.
// Tag carries the extra marker the invoice was created with.
type PaymentEvent struct {
	PaymentHash string
	Amount      int64
	Tag         string
}
