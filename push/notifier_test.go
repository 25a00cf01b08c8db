package push

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"scribe/models"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pushRepoStub struct {
	subs    map[string]webpush.Subscription
	deleted []string
	findErr error
}

func (s *pushRepoStub) Save(_ context.Context, userID string, sub webpush.Subscription) error {
	s.subs[userID] = sub
	return nil
}

func (s *pushRepoStub) FindByUser(_ context.Context, userID string) (*models.PushSubscription, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	sub, ok := s.subs[userID]
	if !ok {
		return nil, models.NewNotFoundError("Push subscription", userID)
	}
	return &models.PushSubscription{UserID: userID, Sub: sub}, nil
}

func (s *pushRepoStub) DeleteByUser(_ context.Context, userID string) error {
	s.deleted = append(s.deleted, userID)
	delete(s.subs, userID)
	return nil
}

type httpClientFunc func(*http.Request) (*http.Response, error)

func (f httpClientFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func testSubscription() webpush.Subscription {
	return webpush.Subscription{
		Endpoint: "https://updates.push.services.mozilla.com/wpush/v2/gAAAAA",
		Keys: webpush.Keys{
			P256dh: "BNNL5ZaTfK81qhXOx23-wewhigUeFb632jN6LvRWCFH1ubQr77FE_9qV1FuojuRmHP42zmf34rXgW80OvUVDgTk",
			Auth:   "zqbxT6JKstKSY9JKibZLSQ",
		},
	}
}

func newTestNotifier(t *testing.T, repo *pushRepoStub, status int, seen *[]*http.Request) *Notifier {
	t.Helper()
	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)

	n := NewNotifier(repo, publicKey, privateKey, "admin@scribe.test")
	require.NotNil(t, n)
	return n.WithHTTPClient(httpClientFunc(func(r *http.Request) (*http.Response, error) {
		if seen != nil {
			*seen = append(*seen, r)
		}
		return &http.Response{StatusCode: status}, nil
	}))
}

func TestNotifySendsToSubscriber(t *testing.T) {
	repo := &pushRepoStub{subs: map[string]webpush.Subscription{"u1": testSubscription()}}
	var seen []*http.Request
	n := newTestNotifier(t, repo, http.StatusCreated, &seen)

	err := n.Notify(context.Background(), "u1", "New like", "Someone liked Hello", "/blog/p1")
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, testSubscription().Endpoint, seen[0].URL.String())
	assert.True(t, strings.HasPrefix(seen[0].Header.Get("Authorization"), "vapid "))
	assert.Empty(t, repo.deleted)
}

func TestNotifyWithoutSubscription(t *testing.T) {
	repo := &pushRepoStub{subs: map[string]webpush.Subscription{}}
	var seen []*http.Request
	n := newTestNotifier(t, repo, http.StatusCreated, &seen)

	require.NoError(t, n.Notify(context.Background(), "u2", "t", "b", "/"))
	assert.Empty(t, seen)
}

func TestNotifyDeletesExpiredSubscription(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusGone} {
		repo := &pushRepoStub{subs: map[string]webpush.Subscription{"u1": testSubscription()}}
		n := newTestNotifier(t, repo, status, nil)

		require.NoError(t, n.Notify(context.Background(), "u1", "t", "b", "/"))
		assert.Equal(t, []string{"u1"}, repo.deleted)
	}
}

func TestNotifyReportsServiceErrors(t *testing.T) {
	repo := &pushRepoStub{subs: map[string]webpush.Subscription{"u1": testSubscription()}}
	n := newTestNotifier(t, repo, http.StatusInternalServerError, nil)
	assert.Error(t, n.Notify(context.Background(), "u1", "t", "b", "/"))

	repo.findErr = errors.New("db down")
	assert.Error(t, n.Notify(context.Background(), "u1", "t", "b", "/"))
}

func TestDisabledNotifier(t *testing.T) {
	n := NewNotifier(&pushRepoStub{}, "", "", "")
	assert.Nil(t, n)
	assert.False(t, n.Enabled())
	assert.Empty(t, n.PublicKey())
	assert.NoError(t, n.Notify(context.Background(), "u1", "t", "b", "/"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}
