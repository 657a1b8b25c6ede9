package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"paidreviews/internal/domain"
)

// QueryService serves the public read paths. Public pages poll these
// endpoints, so results are cached for a short TTL.
type QueryService struct {
	reviews  domain.ReviewRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.ReviewRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{reviews: r, cache: c, cacheTTL: ttl}
}

// KeysetPage is one page of paid reviews plus the tag's aggregate stats,
// which the public page renders alongside the list.
type KeysetPage struct {
	Items       []domain.Review `json:"items"`
	NextCursor  *int64          `json:"next_cursor,omitempty"`
	ReviewCount int64           `json:"review_count"`
	AvgRating   float64         `json:"avg_rating"`
}

func (s *QueryService) ReviewsByTag(ctx context.Context, settingsID, tag string, pg domain.PageQuery) (KeysetPage, error) {
	key := fmt.Sprintf("reviews:%s:%s:%d:%s", settingsID, tag, pg.Limit, cursorKey(pg.Before))
	var out KeysetPage
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}

	page, err := s.reviews.ListReviewsByTag(ctx, settingsID, tag, pg)
	if err != nil {
		return KeysetPage{}, err
	}
	stats, err := s.reviews.RatingStats(ctx, settingsID, tag)
	if err != nil {
		return KeysetPage{}, err
	}

	out = KeysetPage{
		Items:       append([]domain.Review(nil), page.Items...),
		NextCursor:  page.NextCursor,
		ReviewCount: stats.ReviewCount,
		AvgRating:   stats.AvgRating,
	}
	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

func (s *QueryService) Stats(ctx context.Context, settingsID, tag string) (domain.RatingStats, error) {
	key := "stats:" + settingsID + ":" + tag
	var out domain.RatingStats
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	st, err := s.reviews.RatingStats(ctx, settingsID, tag)
	if err != nil {
		return domain.RatingStats{}, err
	}
	_ = s.cache.Set(ctx, key, st, int(s.cacheTTL.Seconds()))
	return st, nil
}

func (s *QueryService) StatsAllTags(ctx context.Context, settingsID string) ([]domain.RatingStats, error) {
	key := "tags:" + settingsID
	var out []domain.RatingStats
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	sts, err := s.reviews.RatingStatsAllTags(ctx, settingsID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, sts, int(s.cacheTTL.Seconds()))
	return sts, nil
}

func cursorKey(before *int64) string {
	if before == nil {
		return "first"
	}
	return strconv.FormatInt(*before, 10)
}
