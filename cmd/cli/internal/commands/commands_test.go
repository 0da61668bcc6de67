package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/musickatta/katta-admin/internal/guard"
	"github.com/musickatta/katta-admin/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendCall struct {
	method string
	path   string
	auth   string
	body   []byte
}

type testBackend struct {
	mu    sync.Mutex
	calls []backendCall

	// delay is applied to every request before it is served.
	delay       time.Duration
	inFlight    int
	maxInFlight int
}

func (b *testBackend) begin(call backendCall) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
	b.inFlight++
	b.maxInFlight = max(b.maxInFlight, b.inFlight)
	return b.delay
}

func (b *testBackend) done() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFlight--
}

func (b *testBackend) peak() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxInFlight
}

func (b *testBackend) last() backendCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[len(b.calls)-1]
}

func (b *testBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func newTestGlobals(t *testing.T) (*Globals, *testBackend, *bytes.Buffer) {
	t.Helper()

	backend := &testBackend{}
	course := map[string]any{
		"courseId": "c1", "courseName": "Carnatic Basics", "details": "Start here",
		"price": "900", "originalPrice": "1200", "status": "active", "keywords": []string{"vocal"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login-admin", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.Unmarshal(backend.last().body, &body)
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"adminId":7,"firstName":"Asha","email":"asha@example.com"}`))
	})
	mux.HandleFunc("GET /course/all-courses", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]any{course})
	})
	mux.HandleFunc("GET /course/get-course/{id}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(course)
	})
	mux.HandleFunc("PUT /course/update-course/{id}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(course)
	})
	mux.HandleFunc("POST /course/create-course", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"courseId":"c9"}`))
	})
	mux.HandleFunc("GET /api/videos/by-course/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"courseId":"c1","courseName":"Carnatic Basics","vedios":[
			{"videoId":"v1","title":"Sarali Varisai"},
			{"videoId":"v2","title":"Janta Varisai"}]}`))
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		delay := backend.begin(backendCall{
			method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization"), body: body,
		})
		defer backend.done()
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	out := &bytes.Buffer{}
	return &Globals{BackendURL: srv.URL, SessionDir: t.TempDir(), Out: out}, backend, out
}

func saveSession(t *testing.T, globals *Globals, s session.Session) {
	t.Helper()
	require.NoError(t, globals.store().Save(context.Background(), s))
}

func TestLoginCmd(t *testing.T) {
	ctx := context.Background()

	t.Run("admin login stores the session", func(t *testing.T) {
		globals, _, out := newTestGlobals(t)

		require.NoError(t, (&LoginCmd{Email: "asha@example.com", Password: "secret"}).Run(ctx, globals))
		assert.Contains(t, out.String(), "Successfully logged in as Asha (ADMIN)")

		s, err := guard.Check(ctx, globals.store(), session.RequireAdmin)
		require.NoError(t, err)
		assert.Equal(t, session.KindAdmin, s.Kind())
	})

	t.Run("rejected login keeps the backend message", func(t *testing.T) {
		globals, _, _ := newTestGlobals(t)

		err := (&LoginCmd{Email: "asha@example.com", Password: "wrong"}).Run(ctx, globals)
		assert.EqualError(t, err, "Invalid credentials")
		assert.False(t, session.IsAuthorized(ctx, globals.store(), session.RequireLogin))
	})

	t.Run("missing credentials are not sent", func(t *testing.T) {
		globals, backend, _ := newTestGlobals(t)

		err := (&LoginCmd{}).Run(ctx, globals)
		assert.EqualError(t, err, "Please enter your email and password.")
		assert.Zero(t, backend.count())
	})

	t.Run("delegated callback", func(t *testing.T) {
		globals, backend, _ := newTestGlobals(t)

		cb := "http://localhost/oauth/callback?googleAuth=success&userId=u-42&firstName=Ravi&accessToken=tok-1"
		require.NoError(t, (&LoginCmd{Callback: cb}).Run(ctx, globals))
		assert.Zero(t, backend.count())

		data, err := os.ReadFile(filepath.Join(globals.SessionDir, "userId"))
		require.NoError(t, err)
		assert.Equal(t, "u-42", string(data))

		require.NoError(t, (&CoursesListCmd{}).Run(ctx, globals))
		assert.Equal(t, "Bearer tok-1", backend.last().auth)
	})

	t.Run("failed callback", func(t *testing.T) {
		globals, _, _ := newTestGlobals(t)

		err := (&LoginCmd{Callback: "http://localhost/oauth/callback?googleAuth=error"}).Run(ctx, globals)
		assert.EqualError(t, err, "Google authentication failed")
	})
}

func TestLogoutAndWhoami(t *testing.T) {
	ctx := context.Background()
	globals, _, out := newTestGlobals(t)
	saveSession(t, globals, &session.AdminSession{AdminID: "7", FirstName: "Asha", Email: "asha@example.com", Role: session.RoleAdmin, IsLoggedIn: true})

	require.NoError(t, (&WhoamiCmd{}).Run(ctx, globals))
	assert.Contains(t, out.String(), "asha@example.com")

	require.NoError(t, (&LogoutCmd{}).Run(ctx, globals))
	out.Reset()

	require.NoError(t, (&WhoamiCmd{}).Run(ctx, globals))
	assert.Equal(t, "Not logged in\n", out.String())
}

func TestGuardedCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("logged out commands make no calls", func(t *testing.T) {
		globals, backend, _ := newTestGlobals(t)

		err := (&CoursesListCmd{}).Run(ctx, globals)
		assert.ErrorIs(t, err, guard.ErrUnauthenticated)
		assert.Zero(t, backend.count())
	})

	t.Run("users cannot change courses", func(t *testing.T) {
		globals, backend, _ := newTestGlobals(t)
		saveSession(t, globals, &session.OAuthUserSession{UserID: "u-1", Role: session.RoleUser, IsLoggedIn: true})

		err := (&VideosDeleteCmd{VideoID: "v1"}).Run(ctx, globals)
		assert.ErrorIs(t, err, guard.ErrForbidden)
		assert.Zero(t, backend.count())
	})
}

func TestCoursesCommands(t *testing.T) {
	ctx := context.Background()
	admin := &session.AdminSession{AdminID: "7", Email: "asha@example.com", Role: session.RoleAdmin, IsLoggedIn: true}

	t.Run("list", func(t *testing.T) {
		globals, _, out := newTestGlobals(t)
		saveSession(t, globals, admin)

		require.NoError(t, (&CoursesListCmd{}).Run(ctx, globals))
		assert.Contains(t, out.String(), "Carnatic Basics")
		assert.Contains(t, out.String(), "25%")
	})

	t.Run("create from file with flag override", func(t *testing.T) {
		globals, backend, out := newTestGlobals(t)
		saveSession(t, globals, admin)

		file := filepath.Join(t.TempDir(), "course.yaml")
		require.NoError(t, os.WriteFile(file, []byte("courseName: Veena\ndetails: Strings\nprice: \"700\"\nkeywords: [veena, strings]\n"), 0600))

		cmd := &CoursesCreateCmd{CourseFields{File: file, Price: "650"}}
		require.NoError(t, cmd.Run(ctx, globals))
		assert.Contains(t, out.String(), "Course created successfully with ID: c9")

		var sent map[string]any
		require.NoError(t, json.Unmarshal(backend.last().body, &sent))
		assert.Equal(t, "Veena", sent["courseName"])
		assert.Equal(t, "650", sent["price"])
		assert.Equal(t, []any{"veena", "strings"}, sent["keywords"])
	})

	t.Run("create without required fields", func(t *testing.T) {
		globals, backend, _ := newTestGlobals(t)
		saveSession(t, globals, admin)

		err := (&CoursesCreateCmd{CourseFields{Name: "Veena"}}).Run(ctx, globals)
		assert.EqualError(t, err, "Please fill in course name, details and price.")
		assert.Zero(t, backend.count())
	})

	t.Run("update keeps unset fields", func(t *testing.T) {
		globals, backend, out := newTestGlobals(t)
		saveSession(t, globals, admin)

		cmd := &CoursesUpdateCmd{CourseID: "c1", CourseFields: CourseFields{Price: "800"}}
		require.NoError(t, cmd.Run(ctx, globals))
		assert.Contains(t, out.String(), "Course updated successfully.")

		call := backend.last()
		assert.Equal(t, http.MethodPut, call.method)
		var sent map[string]any
		require.NoError(t, json.Unmarshal(call.body, &sent))
		assert.Equal(t, "Carnatic Basics", sent["courseName"])
		assert.Equal(t, "800", sent["price"])
		assert.Equal(t, "1200", sent["originalPrice"])
	})
}

func TestCoursesWatch(t *testing.T) {
	t.Run("a slow backend still refreshes the list", func(t *testing.T) {
		globals, backend, out := newTestGlobals(t)
		saveSession(t, globals, &session.OAuthUserSession{UserID: "u-1", Role: session.RoleUser, IsLoggedIn: true})
		backend.mu.Lock()
		backend.delay = 150 * time.Millisecond
		backend.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		require.NoError(t, (&CoursesListCmd{Watch: true, Interval: 20 * time.Millisecond}).Run(ctx, globals))
		assert.Contains(t, out.String(), "Courses (updated at")
		assert.Contains(t, out.String(), "Carnatic Basics")
		assert.Equal(t, 1, backend.peak())
	})

	t.Run("non-positive interval is rejected", func(t *testing.T) {
		globals, backend, _ := newTestGlobals(t)
		saveSession(t, globals, &session.OAuthUserSession{UserID: "u-1", Role: session.RoleUser, IsLoggedIn: true})

		for _, interval := range []time.Duration{0, -time.Second} {
			cmd := &CoursesListCmd{Watch: true, Interval: interval}
			assert.Error(t, cmd.Validate())
			assert.Error(t, cmd.Run(context.Background(), globals))
		}
		assert.Zero(t, backend.count())
		assert.NoError(t, (&CoursesListCmd{}).Validate())
	})
}

func TestPlaylistCmd(t *testing.T) {
	ctx := context.Background()
	globals, _, out := newTestGlobals(t)
	saveSession(t, globals, &session.OAuthUserSession{UserID: "u-1", Role: session.RoleUser, IsLoggedIn: true})

	require.NoError(t, (&PlaylistCmd{CourseID: "c1", After: "v1"}).Run(ctx, globals))
	assert.Contains(t, out.String(), ">  2  v2  Janta Varisai")

	out.Reset()
	require.NoError(t, (&PlaylistCmd{CourseID: "c1", After: "v2"}).Run(ctx, globals))
	assert.Equal(t, "v2 is the last video of Carnatic Basics.\n", out.String())

	err := (&PlaylistCmd{CourseID: "c1", After: "v9"}).Run(ctx, globals)
	assert.Error(t, err)
}
