package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/travel-tales/internal/apperr"
)

var alice = Identity{ID: 42, Name: "Alice", Surname: "Smith", Email: "alice@example.com"}

func newIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	ti, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	return ti
}

func TestTokenRoundTrip(t *testing.T) {
	ti := newIssuer(t)
	tok, err := ti.Sign(alice)
	require.NoError(t, err)

	id, err := ti.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, id.ID)
	assert.Equal(t, alice.Email, id.Email)
	assert.Equal(t, ProvenanceToken, id.Provenance)
}

func TestTokenExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ti := newIssuer(t).WithClock(func() time.Time { return now })
	tok, err := ti.Sign(alice)
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	_, err = ti.Verify(tok)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = ti.Verify(tok)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestTokenRejectsTamperingAndForeignAlgorithms(t *testing.T) {
	ti := newIssuer(t)
	tok, err := ti.Sign(alice)
	require.NoError(t, err)

	other, err := NewTokenIssuer("other-secret", time.Hour)
	require.NoError(t, err)
	_, err = other.Verify(tok)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	_, err = ti.Verify(tok + "x")
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	_, err = ti.Verify("not.a.token")
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{ID: 1, RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ti.Verify(unsigned)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	_, err = NewTokenIssuer("", time.Hour)
	assert.Error(t, err)
}

func TestGatewayPrefersSession(t *testing.T) {
	ti := newIssuer(t)
	gw := NewGateway(ti)
	bob := Identity{ID: 7, Name: "Bob", Email: "bob@example.com"}
	tok, err := ti.Sign(bob)
	require.NoError(t, err)

	sess := &SessionContext{ID: "s1", User: alice, IsAuthenticated: true}
	id, err := gw.Authenticate(Credentials{Session: sess, Authorization: "Bearer " + tok})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, id.ID)
	assert.Equal(t, ProvenanceSession, id.Provenance)

	// 未登录的会话不算数，回落到 token
	anon := &SessionContext{ID: "s2"}
	id, err = gw.Authenticate(Credentials{Session: anon, Authorization: "Bearer " + tok})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, id.ID)
	assert.Equal(t, ProvenanceToken, id.Provenance)
}

func TestGatewaySessionAndTokenYieldSameID(t *testing.T) {
	ti := newIssuer(t)
	gw := NewGateway(ti)
	tok, err := ti.Sign(alice)
	require.NoError(t, err)

	viaToken, err := gw.Authenticate(Credentials{Authorization: "Bearer " + tok})
	require.NoError(t, err)
	viaSession, err := gw.Authenticate(Credentials{Session: &SessionContext{User: alice, IsAuthenticated: true}})
	require.NoError(t, err)
	assert.Equal(t, viaSession.ID, viaToken.ID)
}

func TestGatewayRejections(t *testing.T) {
	gw := NewGateway(newIssuer(t))
	cases := []struct {
		name string
		cred Credentials
		want error
	}{
		{"nothing", Credentials{}, apperr.ErrUnauthenticated},
		{"basic scheme", Credentials{Authorization: "Basic abc"}, apperr.ErrUnauthenticated},
		{"empty bearer", Credentials{Authorization: "Bearer "}, apperr.ErrUnauthenticated},
		{"garbage token", Credentials{Authorization: "Bearer abc.def.ghi"}, apperr.ErrInvalidToken},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			id, err := gw.Authenticate(c.cred)
			assert.Nil(t, id)
			assert.ErrorIs(t, err, c.want)
		})
	}
}

type ownerMap map[uint]uint

func (m ownerMap) OwnerID(_ context.Context, id uint) (uint, error) {
	o, ok := m[id]
	if !ok {
		return 0, apperr.ErrNotFound
	}
	return o, nil
}

type failingLookup struct{}

func (failingLookup) OwnerID(context.Context, uint) (uint, error) {
	return 0, errors.New("database is locked")
}

func TestOwnershipGuard(t *testing.T) {
	g := NewOwnershipGuard(ownerMap{1: 42}, ownerMap{9: 7})
	ctx := context.Background()

	assert.NoError(t, g.Authorize(ctx, ResourcePost, 1, &alice))
	assert.ErrorIs(t, g.Authorize(ctx, ResourceComment, 9, &alice), apperr.ErrNotOwner)
	assert.ErrorIs(t, g.Authorize(ctx, ResourcePost, 2, &alice), apperr.ErrNotFound)
	assert.ErrorIs(t, g.Authorize(ctx, ResourcePost, 1, nil), apperr.ErrUnauthenticated)
	var unset ResourceKind
	assert.ErrorIs(t, g.Authorize(ctx, unset, 1, &alice), apperr.ErrInvalidResourceType)
	assert.Equal(t, "unknown", unset.String())
	assert.Equal(t, "post", ResourcePost.String())
	assert.Equal(t, "comment", ResourceComment.String())

	g = NewOwnershipGuard(failingLookup{}, ownerMap{})
	err := g.Authorize(ctx, ResourcePost, 1, &alice)
	require.Error(t, err)
	assert.Equal(t, 500, apperr.HTTPStatus(err))
}

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	m := NewSessionManager(store, time.Hour)
	m.now = store.now
	ctx := context.Background()

	s, err := m.Create(ctx, alice)
	require.NoError(t, err)
	assert.True(t, s.IsAuthenticated)
	assert.NotEmpty(t, s.ID)

	got, err := m.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.Identity().ID)

	_, err = m.Load(ctx, "")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	now = now.Add(2 * time.Hour)
	_, err = m.Load(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 1, store.Sweep())

	now = time.Now()
	s, err = m.Create(ctx, alice)
	require.NoError(t, err)
	require.NoError(t, m.Destroy(ctx, s.ID))
	_, err = m.Load(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	m := NewSessionManager(NewRedisStore(rdb), 30*time.Minute)
	ctx := context.Background()

	s, err := m.Create(ctx, alice)
	require.NoError(t, err)
	assert.True(t, mr.Exists(redisSessionPrefix+s.ID))
	assert.InDelta(t, (30 * time.Minute).Seconds(), mr.TTL(redisSessionPrefix+s.ID).Seconds(), 2)

	got, err := m.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.Email, got.User.Email)
	assert.Equal(t, ProvenanceSession, got.Identity().Provenance)

	mr.FastForward(31 * time.Minute)
	_, err = m.Load(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	s, err = m.Create(ctx, alice)
	require.NoError(t, err)
	require.NoError(t, m.Destroy(ctx, s.ID))
	_, err = m.Load(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
