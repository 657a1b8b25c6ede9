package app

import (
	"context"
	"fmt"

	"paidreviews/internal/domain"
	"paidreviews/internal/shared"
)

// SettingsService manages operator configuration. The TagSource is optional;
// without one, tag sync reports the upstream as unavailable.
type SettingsService struct {
	repo domain.SettingsRepository
	tags domain.TagSource
}

func NewSettingsService(repo domain.SettingsRepository, tags domain.TagSource) *SettingsService {
	return &SettingsService{repo: repo, tags: tags}
}

// SettingsInput carries a partial settings payload; nil fields are left
// untouched on update.
type SettingsInput struct {
	Wallet       *string  `json:"wallet"`
	Cost         *int64   `json:"cost"`
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	CommentLimit *int     `json:"comment_word_limit"`
	Tags         []string `json:"tags"`
}

func (s *SettingsService) Create(ctx context.Context, userID string, in SettingsInput) (domain.Settings, error) {
	st := domain.Settings{
		ID:     shared.NewID(),
		UserID: userID,
	}
	applyInput(&st, in)
	if err := s.repo.CreateSettings(ctx, st); err != nil {
		return domain.Settings{}, err
	}
	return st, nil
}

func (s *SettingsService) Update(ctx context.Context, settingsID, userID string, in SettingsInput) (domain.Settings, error) {
	st, err := s.repo.GetSettingsByID(ctx, settingsID)
	if err != nil {
		return domain.Settings{}, err
	}
	if st.UserID != userID {
		return domain.Settings{}, domain.ErrForbidden
	}
	applyInput(&st, in)
	if err := s.repo.UpdateSettings(ctx, st); err != nil {
		return domain.Settings{}, err
	}
	return st, nil
}

func (s *SettingsService) GetForUser(ctx context.Context, userID string) (domain.Settings, error) {
	return s.repo.GetSettings(ctx, userID)
}

func (s *SettingsService) GetByID(ctx context.Context, settingsID string) (domain.Settings, error) {
	return s.repo.GetSettingsByID(ctx, settingsID)
}

// SyncTags merges the remote manifest's tag list into the owner's allowed
// set. Returns the updated settings and how many tags were added.
func (s *SettingsService) SyncTags(ctx context.Context, settingsID, userID string) (domain.Settings, int, error) {
	st, err := s.repo.GetSettingsByID(ctx, settingsID)
	if err != nil {
		return domain.Settings{}, 0, err
	}
	if st.UserID != userID {
		return domain.Settings{}, 0, domain.ErrForbidden
	}
	if s.tags == nil {
		return domain.Settings{}, 0, fmt.Errorf("%w: no tag manifest configured", domain.ErrUpstream)
	}
	remote, err := s.tags.FetchTags(ctx)
	if err != nil {
		return domain.Settings{}, 0, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	added := st.MergeTags(remote)
	if added > 0 {
		if err := s.repo.UpdateSettings(ctx, st); err != nil {
			return domain.Settings{}, 0, err
		}
	}
	return st, added, nil
}

func applyInput(st *domain.Settings, in SettingsInput) {
	if in.Wallet != nil {
		st.Wallet = *in.Wallet
	}
	if in.Cost != nil && *in.Cost >= 0 {
		st.Cost = *in.Cost
	}
	if in.Name != nil {
		st.Name = *in.Name
	}
	if in.Description != nil {
		st.Description = *in.Description
	}
	if in.CommentLimit != nil && *in.CommentLimit >= 0 {
		st.CommentLimit = *in.CommentLimit
	}
	if in.Tags != nil {
		st.Tags = dedupe(in.Tags)
	}
}

func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
