package domain

// MaxRating bounds the rating scale. The stored value is an integer in
// [0, MaxRating]; presentation (stars, percent, ...) is up to the frontend.
const MaxRating = 1000

// FreePaymentHash marks reviews that never needed an invoice (cost == 0).
const FreePaymentHash = "free"

type Review struct {
	ID          string `json:"id"`
	SettingsID  string `json:"settings_id"`
	Name        string `json:"name,omitempty"` // reviewer display name
	Tag         string `json:"tag"`
	Rating      int    `json:"rating"`
	Comment     string `json:"comment,omitempty"`
	Paid        bool   `json:"paid"` // monotonic: flips false->true exactly once
	PaymentHash string `json:"payment_hash"`
	CreatedAt   int64  `json:"created_at"` // epoch seconds; keyset pagination cursor
}

// RatingStats aggregates paid reviews of one (settings, tag) pair.
type RatingStats struct {
	Tag         string  `json:"tag,omitempty"`
	ReviewCount int64   `json:"review_count"`
	AvgRating   float64 `json:"avg_rating"`
}

// PageQuery selects a keyset page of paid reviews, newest first.
// Before, when set, is an exclusive upper bound on CreatedAt.
type PageQuery struct {
	Limit  int
	Before *int64
}

type ReviewsPage struct {
	Items      []Review
	NextCursor *int64
}
