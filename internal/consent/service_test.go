package consent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medgate/pkg/domain"
	dErrors "medgate/pkg/domain-errors"
	"medgate/pkg/requestcontext"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testCtx() context.Context {
	return requestcontext.WithTime(context.Background(), fixedNow)
}

func seedGrant(t *testing.T, store Store, mutate func(*Grant)) *Grant {
	t.Helper()
	g := &Grant{
		ID:        "grant-1",
		PatientID: "patient-1",
		Purpose:   domain.PurposeTreatment,
		GrantedBy: "patient-1",
		GrantedAt: fixedNow.Add(-24 * time.Hour),
		Active:    true,
	}
	if mutate != nil {
		mutate(g)
	}
	require.NoError(t, store.Insert(context.Background(), g))
	return g
}

// countingStore fails the test if the consent store is consulted at all.
type countingStore struct {
	Store
	t *testing.T
}

func (s countingStore) FindLatest(context.Context, string, domain.Purpose) (*Grant, error) {
	s.t.Fatal("emergency verification must not hit the consent store")
	return nil, nil
}

func TestVerifyEmergencyBypassesLookup(t *testing.T) {
	svc := NewService(countingStore{Store: NewInMemoryStore(), t: t})

	v, err := svc.Verify(testCtx(), "patient-1", domain.PurposeEmergency)

	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, "Emergency access permitted under PIPA BC Section 18", v.Justification)
	assert.Empty(t, v.ConsentID)
}

func TestVerifyNoGrant(t *testing.T) {
	svc := NewService(NewInMemoryStore())

	v, err := svc.Verify(testCtx(), "patient-1", domain.PurposeTreatment)

	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, "no active consent found for this purpose", v.Reason)
}

func TestVerifyValidGrant(t *testing.T) {
	store := NewInMemoryStore()
	expires := fixedNow.Add(30 * 24 * time.Hour)
	seedGrant(t, store, func(g *Grant) { g.ExpiresAt = &expires })
	svc := NewService(store)

	v, err := svc.Verify(testCtx(), "patient-1", domain.PurposeTreatment)

	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, "grant-1", v.ConsentID)
	require.NotNil(t, v.ExpiresAt)
	assert.True(t, v.ExpiresAt.Equal(expires))
}

func TestVerifyGrantWithoutExpiryNeverExpires(t *testing.T) {
	store := NewInMemoryStore()
	seedGrant(t, store, nil)
	svc := NewService(store)

	ctx := requestcontext.WithTime(context.Background(), fixedNow.AddDate(10, 0, 0))
	v, err := svc.Verify(ctx, "patient-1", domain.PurposeTreatment)

	require.NoError(t, err)
	assert.True(t, v.Valid)
}

func TestVerifyExpiredGrant(t *testing.T) {
	store := NewInMemoryStore()
	expired := fixedNow.Add(-time.Hour)
	seedGrant(t, store, func(g *Grant) { g.ExpiresAt = &expired })
	svc := NewService(store)

	v, err := svc.Verify(testCtx(), "patient-1", domain.PurposeTreatment)

	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, "consent has expired", v.Reason)
}

// Expiry is inclusive: a grant expiring exactly now is still valid.
func TestVerifyExpiryInstantStillValid(t *testing.T) {
	store := NewInMemoryStore()
	at := fixedNow
	seedGrant(t, store, func(g *Grant) { g.ExpiresAt = &at })
	svc := NewService(store)

	v, err := svc.Verify(testCtx(), "patient-1", domain.PurposeTreatment)

	require.NoError(t, err)
	assert.True(t, v.Valid)
}

func TestVerifyWithdrawnGrant(t *testing.T) {
	store := NewInMemoryStore()
	withdrawn := fixedNow.Add(-time.Hour)
	seedGrant(t, store, func(g *Grant) {
		g.WithdrawnAt = &withdrawn
		g.Active = false
	})
	svc := NewService(store)

	v, err := svc.Verify(testCtx(), "patient-1", domain.PurposeTreatment)

	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, "consent has been withdrawn", v.Reason)
}

// Withdrawal wins even if the active flag was left stale.
func TestVerifyWithdrawnBeatsActiveFlag(t *testing.T) {
	store := NewInMemoryStore()
	withdrawn := fixedNow.Add(-time.Hour)
	seedGrant(t, store, func(g *Grant) { g.WithdrawnAt = &withdrawn })
	svc := NewService(store)

	v, err := svc.Verify(testCtx(), "patient-1", domain.PurposeTreatment)

	require.NoError(t, err)
	assert.Equal(t, "consent has been withdrawn", v.Reason)
}

func TestVerifyPurposeIsolation(t *testing.T) {
	store := NewInMemoryStore()
	seedGrant(t, store, nil) // treatment only
	svc := NewService(store)

	v, err := svc.Verify(testCtx(), "patient-1", domain.PurposeBilling)

	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, "no active consent found for this purpose", v.Reason)
}

func TestGrant(t *testing.T) {
	store := NewInMemoryStore()
	svc := NewService(store)
	expires := fixedNow.AddDate(1, 0, 0)

	g, err := svc.Grant(testCtx(), "patient-1", domain.PurposeBilling, "patient-1", &expires)

	require.NoError(t, err)
	assert.NotEmpty(t, g.ID)
	assert.True(t, g.Active)
	assert.True(t, g.GrantedAt.Equal(fixedNow))

	v, err := svc.Verify(testCtx(), "patient-1", domain.PurposeBilling)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, g.ID, v.ConsentID)
}

func TestGrantValidation(t *testing.T) {
	svc := NewService(NewInMemoryStore())

	_, err := svc.Grant(testCtx(), "patient-1", domain.PurposeTreatment, "", nil)
	assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))

	past := fixedNow.Add(-time.Minute)
	_, err = svc.Grant(testCtx(), "patient-1", domain.PurposeTreatment, "patient-1", &past)
	assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))
}

func TestWithdraw(t *testing.T) {
	store := NewInMemoryStore()
	seedGrant(t, store, nil)
	svc := NewService(store)

	g, err := svc.Withdraw(testCtx(), "patient-1", "grant-1")

	require.NoError(t, err)
	require.NotNil(t, g.WithdrawnAt)
	assert.False(t, g.Active)

	v, err := svc.Verify(testCtx(), "patient-1", domain.PurposeTreatment)
	require.NoError(t, err)
	assert.Equal(t, "consent has been withdrawn", v.Reason)
}

func TestWithdrawWrongPatientIsNotFound(t *testing.T) {
	store := NewInMemoryStore()
	seedGrant(t, store, nil)
	svc := NewService(store)

	_, err := svc.Withdraw(testCtx(), "patient-2", "grant-1")
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestWithdrawTwiceConflicts(t *testing.T) {
	store := NewInMemoryStore()
	seedGrant(t, store, nil)
	svc := NewService(store)

	_, err := svc.Withdraw(testCtx(), "patient-1", "grant-1")
	require.NoError(t, err)

	_, err = svc.Withdraw(testCtx(), "patient-1", "grant-1")
	assert.True(t, dErrors.Is(err, dErrors.CodeConflict))
}

// Withdrawing a newer grant must not shadow an older grant that is still
// active: consent decisions follow the active grant, not the newest row.
func TestVerifyActiveGrantSurvivesNewerWithdrawal(t *testing.T) {
	store := NewInMemoryStore()
	seedGrant(t, store, func(g *Grant) {
		g.ID = "grant-old"
		g.GrantedAt = fixedNow.Add(-48 * time.Hour)
	})
	seedGrant(t, store, func(g *Grant) { g.ID = "grant-new" })
	svc := NewService(store)

	_, err := svc.Withdraw(testCtx(), "patient-1", "grant-new")
	require.NoError(t, err)

	v, err := svc.Verify(testCtx(), "patient-1", domain.PurposeTreatment)

	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, "grant-old", v.ConsentID)
}

func TestFindLatestPrefersNewestGrant(t *testing.T) {
	store := NewInMemoryStore()
	seedGrant(t, store, func(g *Grant) {
		g.ID = "grant-old"
		g.GrantedAt = fixedNow.Add(-48 * time.Hour)
		withdrawn := fixedNow.Add(-36 * time.Hour)
		g.WithdrawnAt = &withdrawn
		g.Active = false
	})
	seedGrant(t, store, func(g *Grant) { g.ID = "grant-new" })
	svc := NewService(store)

	v, err := svc.Verify(testCtx(), "patient-1", domain.PurposeTreatment)

	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, "grant-new", v.ConsentID)
}
