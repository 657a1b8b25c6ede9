package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"paidreviews/internal/app"
	"paidreviews/internal/domain"
)

func seedProgram(store *fakeStore, cost int64) domain.Settings {
	st := domain.Settings{
		ID:     "set-1",
		UserID: "user-1",
		Wallet: "wallet-1",
		Cost:   cost,
		Tags:   []string{"coffee"},
	}
	store.settings[st.ID] = st
	return st
}

func seedPendingReview(store *fakeStore, hash string) domain.Review {
	rv := domain.Review{
		ID:          "rev-1",
		SettingsID:  "set-1",
		Tag:         "coffee",
		Rating:      5,
		PaymentHash: hash,
		CreatedAt:   1700000000,
	}
	store.reviews[rv.ID] = rv
	return rv
}

func TestHandlePayment_PaysExactlyOneTribute(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{}
	seedProgram(store, 1000)
	seedPendingReview(store, "hash-X")

	rec := app.NewReconciler(store, store, gw, &fakeCache{}, "tips@example.com")
	ev := domain.PaymentEvent{PaymentHash: "hash-X", Amount: 1000, Tag: domain.PaymentMarker}

	require.NoError(t, rec.HandlePayment(context.Background(), ev))

	got := store.reviews["rev-1"]
	require.True(t, got.Paid)
	require.Equal(t, "hash-X", got.PaymentHash)

	// tribute: floor(2*1000/100) = 20 units, resolved at 20000 msat
	require.Equal(t, 1, gw.resolveCalls)
	require.Equal(t, "tips@example.com", gw.lastResolveAddr)
	require.Equal(t, int64(20000), gw.lastResolveMsat)
	require.Equal(t, 1, gw.payCalls)
	require.Equal(t, "wallet-1", gw.lastPayWallet)
	require.Equal(t, int64(20), gw.lastPayMax)

	// duplicate delivery: no state change, no second payout
	require.NoError(t, rec.HandlePayment(context.Background(), ev))
	require.Equal(t, 1, gw.resolveCalls)
	require.Equal(t, 1, gw.payCalls)
	require.Equal(t, 1, store.markPaidCalls)
}

func TestHandlePayment_ForeignMarkerIgnored(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{}
	seedProgram(store, 1000)
	seedPendingReview(store, "hash-X")

	rec := app.NewReconciler(store, store, gw, nil, "tips@example.com")
	ev := domain.PaymentEvent{PaymentHash: "hash-X", Tag: "otherext"}

	require.NoError(t, rec.HandlePayment(context.Background(), ev))
	require.Equal(t, 0, store.getByHashCalls)
	require.False(t, store.reviews["rev-1"].Paid)
}

func TestHandlePayment_UnmatchedHashIsNoop(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{}
	seedProgram(store, 1000)

	rec := app.NewReconciler(store, store, gw, nil, "tips@example.com")
	ev := domain.PaymentEvent{PaymentHash: "nobody-home", Tag: domain.PaymentMarker}

	require.NoError(t, rec.HandlePayment(context.Background(), ev))
	require.Equal(t, 0, gw.payCalls)
}

func TestHandlePayment_StoreOutageIsRetryable(t *testing.T) {
	store := newFakeStore()
	store.getByHashErr = errors.New("connection refused")
	rec := app.NewReconciler(store, store, &fakeGateway{}, nil, "tips@example.com")

	err := rec.HandlePayment(context.Background(), domain.PaymentEvent{PaymentHash: "h", Tag: domain.PaymentMarker})
	require.Error(t, err)
}

func TestHandlePayment_MarkPaidFailureIsRetryable(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{}
	seedProgram(store, 1000)
	seedPendingReview(store, "hash-X")
	store.markPaidErr = errors.New("deadlock")

	rec := app.NewReconciler(store, store, gw, nil, "tips@example.com")
	err := rec.HandlePayment(context.Background(), domain.PaymentEvent{PaymentHash: "hash-X", Tag: domain.PaymentMarker})
	require.Error(t, err)
	require.False(t, store.reviews["rev-1"].Paid)
	require.Equal(t, 0, gw.payCalls)
}

func TestHandlePayment_TributeFailuresAreSwallowed(t *testing.T) {
	for name, gw := range map[string]*fakeGateway{
		"resolve fails": {resolveErr: errors.New("lnurl down")},
		"pay fails":     {payErr: errors.New("no route")},
	} {
		t.Run(name, func(t *testing.T) {
			store := newFakeStore()
			seedProgram(store, 1000)
			seedPendingReview(store, "hash-X")

			rec := app.NewReconciler(store, store, gw, nil, "tips@example.com")
			ev := domain.PaymentEvent{PaymentHash: "hash-X", Tag: domain.PaymentMarker}

			// the paid transition must stand even when the payout path breaks
			require.NoError(t, rec.HandlePayment(context.Background(), ev))
			require.True(t, store.reviews["rev-1"].Paid)
		})
	}
}

func TestHandlePayment_TinyCostSkipsTribute(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{}
	seedProgram(store, 49) // floor(2*49/100) == 0
	seedPendingReview(store, "hash-X")

	rec := app.NewReconciler(store, store, gw, nil, "tips@example.com")
	require.NoError(t, rec.HandlePayment(context.Background(), domain.PaymentEvent{PaymentHash: "hash-X", Tag: domain.PaymentMarker}))
	require.True(t, store.reviews["rev-1"].Paid)
	require.Equal(t, 0, gw.resolveCalls)
	require.Equal(t, 0, gw.payCalls)
}

func TestHandlePayment_SettingsGoneAfterTransition(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{}
	rv := seedPendingReview(store, "hash-X") // no settings row at all

	rec := app.NewReconciler(store, store, gw, nil, "tips@example.com")
	require.NoError(t, rec.HandlePayment(context.Background(), domain.PaymentEvent{PaymentHash: "hash-X", Tag: domain.PaymentMarker}))
	require.True(t, store.reviews[rv.ID].Paid)
	require.Equal(t, 0, gw.payCalls)
}
