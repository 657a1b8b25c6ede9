package app

import (
	"context"
	"fmt"
	"time"

	"paidreviews/internal/domain"
	"paidreviews/internal/shared"
)

// ReviewService owns the submission flow and owner-side review deletion.
type ReviewService struct {
	reviews  domain.ReviewRepository
	settings domain.SettingsRepository
	gw       domain.Gateway
	cache    domain.Cache
}

func NewReviewService(rr domain.ReviewRepository, sr domain.SettingsRepository, gw domain.Gateway, cache domain.Cache) *ReviewService {
	return &ReviewService{reviews: rr, settings: sr, gw: gw, cache: cache}
}

type SubmitRequest struct {
	SettingsID string
	Name       string
	Tag        string
	Rating     int
	Comment    string
}

// SubmitResult is the caller's handle on the pending payment. For free
// programs Paid is already true and no payment request is returned.
type SubmitResult struct {
	ReviewID       string `json:"review_id"`
	Paid           bool   `json:"paid"`
	PaymentHash    string `json:"payment_hash"`
	PaymentRequest string `json:"payment_request,omitempty"`
}

// Submit validates the request against the program settings, stores the
// review, and when the program has a cost, creates exactly one invoice for it.
func (s *ReviewService) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	st, err := s.settings.GetSettingsByID(ctx, req.SettingsID)
	if err != nil {
		return SubmitResult{}, err
	}
	if st.Wallet == "" {
		// a program without a payout wallet cannot accept reviews
		return SubmitResult{}, domain.ErrNotFound
	}
	if !st.AllowsTag(req.Tag) {
		return SubmitResult{}, domain.ErrInvalidTag
	}
	if req.Comment != "" && st.CommentLimit > 0 && len(req.Comment) > st.CommentLimit {
		return SubmitResult{}, domain.ErrCommentTooLong
	}

	rv := domain.Review{
		ID:         shared.NewID(),
		SettingsID: st.ID,
		Name:       req.Name,
		Tag:        req.Tag,
		Rating:     req.Rating,
		Comment:    req.Comment,
		CreatedAt:  time.Now().UTC().Unix(),
	}

	if st.Cost == 0 {
		rv.Paid = true
		rv.PaymentHash = domain.FreePaymentHash
		if err := s.reviews.CreateReview(ctx, rv); err != nil {
			return SubmitResult{}, err
		}
		invalidateReviewCaches(ctx, s.cache, st.ID, req.Tag)
		return SubmitResult{ReviewID: rv.ID, Paid: true, PaymentHash: rv.PaymentHash}, nil
	}

	inv, err := s.gw.CreateInvoice(ctx, st.Wallet, st.Cost,
		fmt.Sprintf("Paid review for %s", req.Tag),
		map[string]any{"tag": domain.PaymentMarker, "amount": st.Cost},
	)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	rv.PaymentHash = inv.PaymentHash
	if err := s.reviews.CreateReview(ctx, rv); err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{
		ReviewID:       rv.ID,
		PaymentHash:    inv.PaymentHash,
		PaymentRequest: inv.PaymentRequest,
	}, nil
}

// Delete removes a review permanently. Only the owner of the settings the
// review belongs to may do so.
func (s *ReviewService) Delete(ctx context.Context, reviewID, userID string) error {
	rv, err := s.reviews.GetReview(ctx, reviewID)
	if err != nil {
		return err
	}
	st, err := s.settings.GetSettingsByID(ctx, rv.SettingsID)
	if err != nil {
		return err
	}
	if st.UserID != userID {
		return domain.ErrForbidden
	}
	if err := s.reviews.DeleteReview(ctx, reviewID); err != nil {
		return err
	}
	invalidateReviewCaches(ctx, s.cache, st.ID, rv.Tag)
	return nil
}
