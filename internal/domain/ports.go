package domain

import "context"

type SettingsRepository interface {
	CreateSettings(ctx context.Context, s Settings) error
	UpdateSettings(ctx context.Context, s Settings) error
	GetSettings(ctx context.Context, userID string) (Settings, error)
	GetSettingsByID(ctx context.Context, id string) (Settings, error)
}

type ReviewRepository interface {
	// Write paths
	CreateReview(ctx context.Context, r Review) error
	MarkPaid(ctx context.Context, id, paymentHash string) error
	DeleteReview(ctx context.Context, id string) error

	// Read paths
	GetReview(ctx context.Context, id string) (Review, error)
	GetReviewByHash(ctx context.Context, paymentHash string) (Review, error)
	ListReviewsByTag(ctx context.Context, settingsID, tag string, pg PageQuery) (ReviewsPage, error)
	RatingStats(ctx context.Context, settingsID, tag string) (RatingStats, error)
	RatingStatsAllTags(ctx context.Context, settingsID string) ([]RatingStats, error)
}

// Gateway is the payment backend: it issues invoices, pays them, and turns
// lightning addresses into payable requests. Completion events arrive
// separately, through the stream adapter.
type Gateway interface {
	CreateInvoice(ctx context.Context, wallet string, amount int64, memo string, extra map[string]any) (Invoice, error)
	PayInvoice(ctx context.Context, wallet, paymentRequest string, maxAmount int64, description string) error
	ResolveAddress(ctx context.Context, address string, amountMsat int64) (string, error)
}

// TagSource lists tag names hosted in a remote manifest.
type TagSource interface {
	FetchTags(ctx context.Context) ([]string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
