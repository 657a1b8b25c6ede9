package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"paidreviews/internal/adapters/observability"
	"paidreviews/internal/domain"
)

// TributePercent of the program cost is forwarded to the support address
// after each settled review, truncated to whole units.
const TributePercent = 2

const tributeDescription = "Tribute to help support the reviews service"

// Reconciler applies settled-invoice events to pending reviews. It is driven
// by a single sequential consumer, so no two events race on one payment hash.
type Reconciler struct {
	reviews        domain.ReviewRepository
	settings       domain.SettingsRepository
	gw             domain.Gateway
	cache          domain.Cache
	tributeAddress string
}

func NewReconciler(rr domain.ReviewRepository, sr domain.SettingsRepository, gw domain.Gateway, cache domain.Cache, tributeAddress string) *Reconciler {
	return &Reconciler{reviews: rr, settings: sr, gw: gw, cache: cache, tributeAddress: tributeAddress}
}

// HandlePayment processes one completion event. A non-nil return means the
// paid transition did not commit and the event may be retried; everything
// after the transition is best-effort and never surfaces an error.
func (r *Reconciler) HandlePayment(ctx context.Context, ev domain.PaymentEvent) error {
	// The completion stream is shared with other subsystems.
	if ev.Tag != domain.PaymentMarker {
		observability.ObservePaymentEvent("foreign")
		return nil
	}

	rv, err := r.reviews.GetReviewByHash(ctx, ev.PaymentHash)
	if errors.Is(err, domain.ErrNotFound) {
		// stale or unrelated event
		observability.ObservePaymentEvent("unmatched")
		return nil
	}
	if err != nil {
		observability.ObservePaymentEvent("error")
		return fmt.Errorf("lookup review for %s: %w", ev.PaymentHash, err)
	}
	if rv.Paid {
		// duplicate delivery; the tribute was already attempted once
		observability.ObservePaymentEvent("duplicate")
		return nil
	}

	if err := r.reviews.MarkPaid(ctx, rv.ID, ev.PaymentHash); err != nil {
		observability.ObservePaymentEvent("error")
		return fmt.Errorf("mark review %s paid: %w", rv.ID, err)
	}
	observability.ObservePaymentEvent("paid")
	log.Info().
		Str("review_id", rv.ID).
		Str("payment_hash", ev.PaymentHash).
		Str("tag", rv.Tag).
		Msg("review paid")
	invalidateReviewCaches(ctx, r.cache, rv.SettingsID, rv.Tag)

	// From here on the paid transition is committed and must stand; failures
	// are logged and dropped.
	st, err := r.settings.GetSettingsByID(ctx, rv.SettingsID)
	if err != nil {
		log.Warn().Err(err).Str("settings_id", rv.SettingsID).Msg("settings missing after paid transition, tribute skipped")
		return nil
	}

	tribute := TributePercent * st.Cost / 100
	if tribute <= 0 {
		observability.ObserveTribute("skipped")
		return nil
	}
	if err := r.payTribute(ctx, tribute, st.Wallet); err != nil {
		observability.ObserveTribute("failed")
		log.Warn().Err(err).
			Str("review_id", rv.ID).
			Int64("tribute", tribute).
			Msg("tribute payout failed")
		return nil
	}
	observability.ObserveTribute("ok")
	return nil
}

func (r *Reconciler) payTribute(ctx context.Context, amount int64, wallet string) error {
	pr, err := r.gw.ResolveAddress(ctx, r.tributeAddress, amount*1000)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", r.tributeAddress, err)
	}
	return r.gw.PayInvoice(ctx, wallet, pr, amount, tributeDescription)
}
