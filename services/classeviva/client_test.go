package classeviva

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gablilli/selfhosted-classeviva/core"
	"github.com/gablilli/selfhosted-classeviva/core/grade"
	"github.com/gablilli/selfhosted-classeviva/core/session"
)

const testAPIKey = "+zorro+"

func newUpstream(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testAPIKey, r.Header.Get("Z-Dev-Apikey"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/rest/v1/auth/login":
			var req loginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			switch req.Pass {
			case "pwd":
				_, _ = io.WriteString(w, `{"ident":"S1234567X","firstName":"Anna","lastName":"Bianchi","token":"cv-token"}`)
			case "no-token":
				_, _ = io.WriteString(w, `{"ident":"S1234567X"}`)
			case "boom":
				w.WriteHeader(http.StatusBadGateway)
			default:
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = io.WriteString(w, `{"statusCode":422,"error":"wrong credentials"}`)
			}
		case r.Method == http.MethodGet && r.URL.Path == "/rest/v1/students/1234567/grades":
			switch r.Header.Get("Z-Auth-Token") {
			case "cv-token":
				_, _ = io.WriteString(w, `{"grades":[{"evtId":101,"subjectDesc":"MATEMATICA","displayValue":"7+","evtDate":"2024-02-10"},{"evtId":102,"subjectDesc":"STORIA","displayValue":"abc"}]}`)
			case "garbage":
				_, _ = io.WriteString(w, `<html>maintenance</html>`)
			case "wrong-shape":
				_, _ = io.WriteString(w, `{"grades":"none"}`)
			default:
				w.WriteHeader(http.StatusUnauthorized)
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestClient(t *testing.T, baseURL string, relays ...string) *Client {
	c, err := NewClient(core.UpstreamConfig{
		BaseURL:   baseURL,
		APIKey:    testAPIKey,
		UserAgent: core.DefaultUserAgent,
		Relays:    relays,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestEndpoint_Authenticate(t *testing.T) {
	srv := newUpstream(t)
	defer srv.Close()
	ep := newTestClient(t, srv.URL+"/rest/v1").Endpoints()[0]

	tests := []struct {
		name     string
		password string
		want     session.Identity
		wantKind error
		wantCode int
	}{
		{
			name: "success", password: "pwd",
			want: session.Identity{UpstreamToken: "cv-token", UserID: "S1234567X", FirstName: "Anna", LastName: "Bianchi"},
		},
		{name: "wrong credentials", password: "wrong", wantKind: core.ErrUpstreamRejected, wantCode: http.StatusUnprocessableEntity},
		{name: "upstream fault", password: "boom", wantKind: core.ErrUpstreamUnreachable, wantCode: http.StatusBadGateway},
		{name: "success without token", password: "no-token", wantKind: core.ErrUpstreamUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ident, err := ep.Authenticate(context.Background(), session.Credentials{Username: "S1234567X", Password: tt.password})
			if tt.wantKind == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.want, ident)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, errors.Cause(err))
			var cvErr *Error
			require.True(t, errors.As(err, &cvErr))
			assert.Equal(t, DirectRoute, cvErr.Route)
			assert.Equal(t, tt.wantCode, cvErr.Status)
		})
	}
}

func TestEndpoint_Authenticate_networkError(t *testing.T) {
	srv := newUpstream(t)
	srv.Close()
	ep := newTestClient(t, srv.URL+"/rest/v1").Endpoints()[0]

	_, err := ep.Authenticate(context.Background(), session.Credentials{Username: "S1234567X", Password: "pwd"})
	require.Error(t, err)
	assert.Equal(t, core.ErrUpstreamUnreachable, errors.Cause(err))
}

func TestEndpoint_FetchGrades(t *testing.T) {
	srv := newUpstream(t)
	defer srv.Close()
	ep := newTestClient(t, srv.URL+"/rest/v1").Endpoints()[0]

	raws, err := ep.FetchGrades(context.Background(), "cv-token", "S1234567X")
	require.NoError(t, err)
	require.Len(t, raws, 2)

	grades, dropped := grade.NormalizeAll(raws, grade.ResolveSubject)
	assert.Equal(t, 1, dropped)
	require.Len(t, grades, 1)
	assert.Equal(t, "101", grades[0].ID)
	assert.Equal(t, 7.25, grades[0].Value)

	tests := []struct {
		token    string
		wantKind error
	}{
		{token: "expired", wantKind: core.ErrUpstreamRejected},
		{token: "garbage", wantKind: core.ErrUpstreamUnreachable},
		{token: "wrong-shape", wantKind: core.ErrUpstreamUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			_, err := ep.FetchGrades(context.Background(), tt.token, "S1234567X")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, errors.Cause(err))
		})
	}
}

func TestEndpoint_timeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	ep := newTestClient(t, slow.URL).Endpoints()[0]

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := ep.FetchGrades(ctx, "cv-token", "S1234567X")
	require.Error(t, err)
	assert.Equal(t, core.ErrUpstreamUnreachable, errors.Cause(err))
}

func TestClient_relayRoutes(t *testing.T) {
	const base = "https://web.spaggiari.eu/rest/v1"
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/raw", r.URL.Path)
		assert.Equal(t, base+"/auth/login", r.URL.Query().Get("url"))
		_, _ = io.WriteString(w, `{"ident":"S1234567X","firstName":"Anna","lastName":"Bianchi","token":"relayed"}`)
	}))
	defer relay.Close()

	c := newTestClient(t, base, relay.URL+"/raw?url=", "  ")
	eps := c.Endpoints()
	require.Len(t, eps, 2)
	assert.Equal(t, DirectRoute, eps[0].Name())
	assert.Equal(t, "relay-1", eps[1].Name())
	assert.Len(t, c.Authenticators(), 2)
	assert.Len(t, c.Fetchers(), 2)

	ident, err := eps[1].Authenticate(context.Background(), session.Credentials{Username: "S1234567X", Password: "pwd"})
	require.NoError(t, err)
	assert.Equal(t, "relayed", ident.UpstreamToken)
}

func TestRoute_URL(t *testing.T) {
	target := "https://web.spaggiari.eu/rest/v1/students/1/grades"
	assert.Equal(t, target, Route{Name: DirectRoute}.URL(target))
	assert.Equal(t,
		"https://corsproxy.io/?https%3A%2F%2Fweb.spaggiari.eu%2Frest%2Fv1%2Fstudents%2F1%2Fgrades",
		Route{Name: "relay-3", Prefix: "https://corsproxy.io/?"}.URL(target),
	)
}

func TestStudentID(t *testing.T) {
	assert.Equal(t, "1234567", StudentID("S1234567X"))
	assert.Equal(t, "1234567", StudentID("1234567"))
	assert.Equal(t, "demo", StudentID("demo"))
}
