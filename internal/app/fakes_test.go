package app_test

import (
	"context"
	"encoding/json"
	"sort"

	"paidreviews/internal/domain"
)

// ---- in-memory store implementing both repository ports ----

type fakeStore struct {
	settings map[string]domain.Settings
	reviews  map[string]domain.Review

	getByHashErr error
	markPaidErr  error
	createErr    error

	getByHashCalls int
	markPaidCalls  int
	updateCalls    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		settings: map[string]domain.Settings{},
		reviews:  map[string]domain.Review{},
	}
}

func (f *fakeStore) CreateSettings(ctx context.Context, s domain.Settings) error {
	f.settings[s.ID] = s
	return nil
}

func (f *fakeStore) UpdateSettings(ctx context.Context, s domain.Settings) error {
	f.updateCalls++
	if _, ok := f.settings[s.ID]; !ok {
		return domain.ErrNotFound
	}
	f.settings[s.ID] = s
	return nil
}

func (f *fakeStore) GetSettings(ctx context.Context, userID string) (domain.Settings, error) {
	var found []domain.Settings
	for _, s := range f.settings {
		if s.UserID == userID {
			found = append(found, s)
		}
	}
	if len(found) == 0 {
		return domain.Settings{}, domain.ErrNotFound
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return found[0], nil
}

func (f *fakeStore) GetSettingsByID(ctx context.Context, id string) (domain.Settings, error) {
	s, ok := f.settings[id]
	if !ok {
		return domain.Settings{}, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) CreateReview(ctx context.Context, r domain.Review) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.reviews[r.ID] = r
	return nil
}

func (f *fakeStore) MarkPaid(ctx context.Context, id, paymentHash string) error {
	f.markPaidCalls++
	if f.markPaidErr != nil {
		return f.markPaidErr
	}
	r, ok := f.reviews[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Paid = true
	r.PaymentHash = paymentHash
	f.reviews[id] = r
	return nil
}

func (f *fakeStore) DeleteReview(ctx context.Context, id string) error {
	delete(f.reviews, id)
	return nil
}

func (f *fakeStore) GetReview(ctx context.Context, id string) (domain.Review, error) {
	r, ok := f.reviews[id]
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) GetReviewByHash(ctx context.Context, hash string) (domain.Review, error) {
	f.getByHashCalls++
	if f.getByHashErr != nil {
		return domain.Review{}, f.getByHashErr
	}
	for _, r := range f.reviews {
		if r.PaymentHash == hash {
			return r, nil
		}
	}
	return domain.Review{}, domain.ErrNotFound
}

func (f *fakeStore) ListReviewsByTag(ctx context.Context, settingsID, tag string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	var items []domain.Review
	for _, r := range f.reviews {
		if r.SettingsID != settingsID || r.Tag != tag || !r.Paid {
			continue
		}
		if pg.Before != nil && r.CreatedAt >= *pg.Before {
			continue
		}
		items = append(items, r)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt != items[j].CreatedAt {
			return items[i].CreatedAt > items[j].CreatedAt
		}
		return items[i].ID > items[j].ID
	})
	if pg.Limit > 0 && len(items) > pg.Limit {
		items = items[:pg.Limit]
	}
	page := domain.ReviewsPage{Items: items}
	if pg.Limit > 0 && len(items) == pg.Limit {
		cursor := items[len(items)-1].CreatedAt
		page.NextCursor = &cursor
	}
	return page, nil
}

func (f *fakeStore) RatingStats(ctx context.Context, settingsID, tag string) (domain.RatingStats, error) {
	st := domain.RatingStats{Tag: tag}
	var sum int64
	for _, r := range f.reviews {
		if r.SettingsID == settingsID && r.Tag == tag && r.Paid {
			st.ReviewCount++
			sum += int64(r.Rating)
		}
	}
	if st.ReviewCount > 0 {
		st.AvgRating = float64(sum) / float64(st.ReviewCount)
	}
	return st, nil
}

func (f *fakeStore) RatingStatsAllTags(ctx context.Context, settingsID string) ([]domain.RatingStats, error) {
	byTag := map[string]*domain.RatingStats{}
	sums := map[string]int64{}
	for _, r := range f.reviews {
		if r.SettingsID != settingsID || !r.Paid {
			continue
		}
		st, ok := byTag[r.Tag]
		if !ok {
			st = &domain.RatingStats{Tag: r.Tag}
			byTag[r.Tag] = st
		}
		st.ReviewCount++
		sums[r.Tag] += int64(r.Rating)
	}
	var out []domain.RatingStats
	for tag, st := range byTag {
		st.AvgRating = float64(sums[tag]) / float64(st.ReviewCount)
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReviewCount != out[j].ReviewCount {
			return out[i].ReviewCount > out[j].ReviewCount
		}
		return out[i].Tag < out[j].Tag
	})
	return out, nil
}

// ---- gateway fake recording every call ----

type fakeGateway struct {
	createErr  error
	resolveErr error
	payErr     error

	createCalls  int
	resolveCalls int
	payCalls     int

	lastInvoiceWallet string
	lastInvoiceAmount int64
	lastInvoiceMemo   string
	lastInvoiceExtra  map[string]any

	lastResolveAddr string
	lastResolveMsat int64

	lastPayWallet  string
	lastPayRequest string
	lastPayMax     int64
	lastPayDesc    string
}

func (g *fakeGateway) CreateInvoice(ctx context.Context, wallet string, amount int64, memo string, extra map[string]any) (domain.Invoice, error) {
	g.createCalls++
	if g.createErr != nil {
		return domain.Invoice{}, g.createErr
	}
	g.lastInvoiceWallet = wallet
	g.lastInvoiceAmount = amount
	g.lastInvoiceMemo = memo
	g.lastInvoiceExtra = extra
	return domain.Invoice{PaymentHash: "hash-1", PaymentRequest: "lnbc10u1..."}, nil
}

func (g *fakeGateway) ResolveAddress(ctx context.Context, address string, amountMsat int64) (string, error) {
	g.resolveCalls++
	if g.resolveErr != nil {
		return "", g.resolveErr
	}
	g.lastResolveAddr = address
	g.lastResolveMsat = amountMsat
	return "lnbc-tribute...", nil
}

func (g *fakeGateway) PayInvoice(ctx context.Context, wallet, paymentRequest string, maxAmount int64, description string) error {
	g.payCalls++
	if g.payErr != nil {
		return g.payErr
	}
	g.lastPayWallet = wallet
	g.lastPayRequest = paymentRequest
	g.lastPayMax = maxAmount
	g.lastPayDesc = description
	return nil
}

// ---- cache fake (JSON round-trip keeps it type-agnostic) ----

type fakeCache struct {
	store map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

// ---- tag source fake ----

type fakeTagSource struct {
	tags []string
	err  error
}

func (f *fakeTagSource) FetchTags(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tags, nil
}
