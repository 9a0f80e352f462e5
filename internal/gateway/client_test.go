package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/devmatch/internal/gateway"
)

type fakeBackend struct {
	mu        sync.Mutex
	submitted []string
	reviewed  []string
	requestID []string
}

func (f *fakeBackend) router() http.Handler {
	r := chi.NewRouter()
	r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["password"] != "right" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "abc", Path: "/"})
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	})
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				f.mu.Lock()
				f.requestID = append(f.requestID, r.Header.Get(gateway.HeaderRequestID))
				f.mu.Unlock()
				if c, err := r.Cookie("token"); err != nil || c.Value != "abc" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
			})
		})
		r.Get("/feed", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"_id":"a","firstName":"Ada"},{"_id":"b","firstName":"Bo"}]}`))
		})
		r.Get("/user/connections", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"connections":[{"_id":"c","firstName":"Cy"},null]}`))
		})
		r.Get("/user/requests/received", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"_id":"r1","fromUserId":{"_id":"u1","firstName":"Di"}}]}`))
		})
		r.Post("/request/send/{action}/{id}", func(w http.ResponseWriter, r *http.Request) {
			if chi.URLParam(r, "id") == "broken" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"message":"Invalid status type"}`))
				return
			}
			f.mu.Lock()
			f.submitted = append(f.submitted, chi.URLParam(r, "action")+":"+chi.URLParam(r, "id"))
			f.mu.Unlock()
			w.WriteHeader(http.StatusOK)
		})
		r.Post("/request/review/{status}/{id}", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.reviewed = append(f.reviewed, chi.URLParam(r, "status")+":"+chi.URLParam(r, "id"))
			f.mu.Unlock()
			w.WriteHeader(http.StatusOK)
		})
	})
	return r
}

func newClient(t *testing.T) (*gateway.Client, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.router())
	t.Cleanup(srv.Close)
	client, err := gateway.New(gateway.ClientConfig{BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	return client, backend
}

func TestLoginCarriesSessionCookie(t *testing.T) {
	client, backend := newClient(t)
	ctx := context.Background()

	_, err := client.FetchFeed(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gateway.ErrUnauthorized))

	require.NoError(t, client.Login(ctx, "ada@example.test", "right"))
	feed, err := client.FetchFeed(ctx)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, "a", feed[0].ID)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	for _, id := range backend.requestID {
		assert.NotEmpty(t, id)
	}
}

func TestLoginFailureSurfacesServerMessage(t *testing.T) {
	client, _ := newClient(t)
	err := client.Login(context.Background(), "ada@example.test", "wrong")
	require.Error(t, err)
	var se *gateway.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, "Invalid credentials", gateway.UserMessage(err, "fallback"))
}

func TestSubmitAndReviewHitContractPaths(t *testing.T) {
	client, backend := newClient(t)
	ctx := context.Background()
	require.NoError(t, client.Login(ctx, "x", "right"))

	require.NoError(t, client.SubmitDecision(ctx, "interested", "a"))
	require.NoError(t, client.SubmitDecision(ctx, "ignored", "b"))
	require.NoError(t, client.ReviewRequest(ctx, "accepted", "r1"))

	err := client.SubmitDecision(ctx, "interested", "broken")
	require.Error(t, err)
	assert.Equal(t, "Invalid status type", gateway.UserMessage(err, ""))

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, []string{"interested:a", "ignored:b"}, backend.submitted)
	assert.Equal(t, []string{"accepted:r1"}, backend.reviewed)
}

func TestConnectionsAndRequestsNormalize(t *testing.T) {
	client, _ := newClient(t)
	ctx := context.Background()
	require.NoError(t, client.Login(ctx, "x", "right"))

	conns, err := client.FetchConnections(ctx)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "Cy", conns[0].FirstName)

	reqs, err := client.FetchRequests(ctx)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "Di", reqs[0].Sender().FirstName)
}

func TestUnreachableBackendMapsToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client, err := gateway.New(gateway.ClientConfig{BaseURL: base, ReadTimeout: time.Second})
	require.NoError(t, err)
	_, err = client.FetchFeed(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, gateway.ErrUnavailable))
}

func TestSlowBackendTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	client, err := gateway.New(gateway.ClientConfig{BaseURL: srv.URL, ReadTimeout: 50 * time.Millisecond})
	require.NoError(t, err)
	_, err = client.FetchFeed(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, gateway.ErrTimeout), "got %v", err)
}

func TestNewRejectsRelativeBaseURL(t *testing.T) {
	_, err := gateway.New(gateway.ClientConfig{BaseURL: "not a url"})
	assert.Error(t, err)
}

type routeRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *routeRecorder) ObserveRequest(route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, route+":"+http.StatusText(status))
}

func TestObserverSeesEveryCall(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.router())
	t.Cleanup(srv.Close)

	obs := &routeRecorder{}
	client, err := gateway.New(gateway.ClientConfig{BaseURL: srv.URL}, gateway.WithObserver(obs))
	require.NoError(t, err)

	ctx := context.Background()
	_, _ = client.FetchFeed(ctx)
	require.NoError(t, client.Login(ctx, "x", "right"))
	require.NoError(t, client.SubmitDecision(ctx, "ignored", "a"))

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []string{"feed:Unauthorized", "login:OK", "submit:OK"}, obs.calls)
}
