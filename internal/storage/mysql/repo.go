package mysql

import (
	"context"
	"database/sql"
	"encoding/json"

	"paidreviews/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ---- Settings ----

func (r *Repo) CreateSettings(ctx context.Context, s domain.Settings) error {
	tags, err := json.Marshal(emptyAsList(s.Tags))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, insertSettingsSQL,
		s.ID, s.UserID, s.Wallet, s.Cost, s.Name, s.Description, s.CommentLimit, string(tags))
	return err
}

func (r *Repo) UpdateSettings(ctx context.Context, s domain.Settings) error {
	tags, err := json.Marshal(emptyAsList(s.Tags))
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, updateSettingsSQL,
		s.Wallet, s.Cost, s.Name, s.Description, s.CommentLimit, string(tags), s.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// RowsAffected is 0 for a no-op update too; re-check existence.
		if _, err := r.GetSettingsByID(ctx, s.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) GetSettings(ctx context.Context, userID string) (domain.Settings, error) {
	return r.scanSettings(r.db.QueryRowContext(ctx, getSettingsByUserSQL, userID))
}

func (r *Repo) GetSettingsByID(ctx context.Context, id string) (domain.Settings, error) {
	return r.scanSettings(r.db.QueryRowContext(ctx, getSettingsByIDSQL, id))
}

func (r *Repo) scanSettings(row *sql.Row) (domain.Settings, error) {
	var s domain.Settings
	var tagsJSON []byte
	if err := row.Scan(&s.ID, &s.UserID, &s.Wallet, &s.Cost, &s.Name, &s.Description, &s.CommentLimit, &tagsJSON); err != nil {
		if err == sql.ErrNoRows {
			return domain.Settings{}, domain.ErrNotFound
		}
		return domain.Settings{}, err
	}
	_ = json.Unmarshal(tagsJSON, &s.Tags)
	return s, nil
}

// ---- Reviews ----

func (r *Repo) CreateReview(ctx context.Context, rv domain.Review) error {
	_, err := r.db.ExecContext(ctx, insertReviewSQL,
		rv.ID, rv.SettingsID, rv.Name, rv.Tag, rv.Rating, rv.Comment, rv.Paid, rv.PaymentHash, rv.CreatedAt)
	return err
}

func (r *Repo) MarkPaid(ctx context.Context, id, paymentHash string) error {
	_, err := r.db.ExecContext(ctx, markPaidSQL, paymentHash, id)
	return err
}

func (r *Repo) DeleteReview(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, deleteReviewSQL, id)
	return err
}

func (r *Repo) GetReview(ctx context.Context, id string) (domain.Review, error) {
	return r.scanReview(r.db.QueryRowContext(ctx, getReviewSQL, id))
}

func (r *Repo) GetReviewByHash(ctx context.Context, paymentHash string) (domain.Review, error) {
	return r.scanReview(r.db.QueryRowContext(ctx, getReviewByHashSQL, paymentHash))
}

func (r *Repo) scanReview(row *sql.Row) (domain.Review, error) {
	var rv domain.Review
	if err := row.Scan(&rv.ID, &rv.SettingsID, &rv.Name, &rv.Tag, &rv.Rating, &rv.Comment, &rv.Paid, &rv.PaymentHash, &rv.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Review{}, domain.ErrNotFound
		}
		return domain.Review{}, err
	}
	return rv, nil
}

func (r *Repo) ListReviewsByTag(ctx context.Context, settingsID, tag string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	q := listReviewsPrefix
	args := []any{settingsID, tag}
	if pg.Before != nil {
		q += " AND created_at < ?"
		args = append(args, *pg.Before)
	}
	q += listReviewsTail
	args = append(args, pg.Limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.SettingsID, &rv.Name, &rv.Tag, &rv.Rating, &rv.Comment, &rv.Paid, &rv.PaymentHash, &rv.CreatedAt); err != nil {
			return domain.ReviewsPage{}, err
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return domain.ReviewsPage{}, err
	}

	page := domain.ReviewsPage{Items: out}
	// A full page implies more may follow; a short page ends the set.
	if pg.Limit > 0 && len(out) == pg.Limit {
		cursor := out[len(out)-1].CreatedAt
		page.NextCursor = &cursor
	}
	return page, nil
}

func (r *Repo) RatingStats(ctx context.Context, settingsID, tag string) (domain.RatingStats, error) {
	st := domain.RatingStats{Tag: tag}
	err := r.db.QueryRowContext(ctx, ratingStatsSQL, settingsID, tag).
		Scan(&st.ReviewCount, &st.AvgRating)
	if err != nil {
		return domain.RatingStats{}, err
	}
	return st, nil
}

func (r *Repo) RatingStatsAllTags(ctx context.Context, settingsID string) ([]domain.RatingStats, error) {
	rows, err := r.db.QueryContext(ctx, ratingStatsAllTagsSQL, settingsID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RatingStats
	for rows.Next() {
		var st domain.RatingStats
		if err := rows.Scan(&st.Tag, &st.ReviewCount, &st.AvgRating); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// emptyAsList keeps nil slices marshaling to "[]" instead of "null".
func emptyAsList(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
