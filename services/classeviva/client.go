package classeviva

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/gablilli/selfhosted-classeviva/core"
	"github.com/gablilli/selfhosted-classeviva/core/grade"
	"github.com/gablilli/selfhosted-classeviva/core/session"
)

const (
	DirectRoute = "direct"

	opLogin  = "login"
	opGrades = "grades"

	maxBodySize = 4 << 20
)

// Route is one way to reach the upstream: directly, or through a relay whose prefix is
// followed by the query-escaped target URL.
type Route struct {
	Name   string
	Prefix string
}

func (r Route) URL(target string) string {
	if r.Prefix == "" {
		return target
	}
	return r.Prefix + url.QueryEscape(target)
}

type Client struct {
	http    *http.Client
	conf    core.UpstreamConfig
	routes  []Route
	schemas *schemas
}

// NewClient builds a client trying the upstream directly first, then each configured relay.
// Per-call deadlines come from the caller's context.
func NewClient(conf core.UpstreamConfig, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	s, err := loadSchemas()
	if err != nil {
		return nil, err
	}

	routes := make([]Route, 0, len(conf.Relays)+1)
	routes = append(routes, Route{Name: DirectRoute})
	for i, prefix := range conf.Relays {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			routes = append(routes, Route{Name: fmt.Sprintf("relay-%d", i+1), Prefix: prefix})
		}
	}
	return &Client{http: httpClient, conf: conf, routes: routes, schemas: s}, nil
}

// Endpoints returns one endpoint per route, in the order they must be tried.
func (c *Client) Endpoints() []*Endpoint {
	eps := make([]*Endpoint, 0, len(c.routes))
	for _, r := range c.routes {
		eps = append(eps, &Endpoint{client: c, route: r})
	}
	return eps
}

// Authenticators lists the endpoints as login strategies.
func (c *Client) Authenticators() []session.Authenticator {
	eps := c.Endpoints()
	auths := make([]session.Authenticator, 0, len(eps))
	for _, ep := range eps {
		auths = append(auths, ep)
	}
	return auths
}

// Fetchers lists the endpoints as grade-fetching strategies.
func (c *Client) Fetchers() []grade.Fetcher {
	eps := c.Endpoints()
	fetchers := make([]grade.Fetcher, 0, len(eps))
	for _, ep := range eps {
		fetchers = append(fetchers, ep)
	}
	return fetchers
}

// Endpoint talks to the upstream through a single route.
type Endpoint struct {
	client *Client
	route  Route
}

var (
	_ session.Authenticator = (*Endpoint)(nil)
	_ grade.Fetcher         = (*Endpoint)(nil)
)

func (ep *Endpoint) Name() string { return ep.route.Name }

type (
	loginRequest struct {
		Ident        string `json:"ident"`
		Pass         string `json:"pass"`
		CustomerCode string `json:"customerCode"`
	}

	loginResponse struct {
		Token     string `json:"token"`
		Ident     string `json:"ident"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}

	gradesResponse struct {
		Grades []grade.RawGrade `json:"grades"`
	}
)

func (ep *Endpoint) Authenticate(ctx context.Context, creds session.Credentials) (session.Identity, error) {
	payload, err := json.Marshal(loginRequest{Ident: creds.Username, Pass: creds.Password})
	if err != nil {
		return session.Identity{}, errors.Wrap(err, "encoding login request")
	}

	body, err := ep.do(ctx, opLogin, http.MethodPost, "/auth/login", "", payload)
	if err != nil {
		return session.Identity{}, err
	}
	if err = validate(ep.client.schemas.login, body); err != nil {
		return session.Identity{}, ep.error(opLogin, 0, core.ErrUpstreamUnreachable, err)
	}

	var resp loginResponse
	if err = json.Unmarshal(body, &resp); err != nil {
		return session.Identity{}, ep.error(opLogin, 0, core.ErrUpstreamUnreachable, err)
	}
	ident := resp.Ident
	if ident == "" {
		ident = creds.Username
	}
	return session.Identity{
		UpstreamToken: resp.Token,
		UserID:        ident,
		FirstName:     resp.FirstName,
		LastName:      resp.LastName,
	}, nil
}

func (ep *Endpoint) FetchGrades(ctx context.Context, upstreamToken, userID string) ([]grade.RawGrade, error) {
	path := "/students/" + url.PathEscape(StudentID(userID)) + "/grades"
	body, err := ep.do(ctx, opGrades, http.MethodGet, path, upstreamToken, nil)
	if err != nil {
		return nil, err
	}
	if err = validate(ep.client.schemas.grades, body); err != nil {
		return nil, ep.error(opGrades, 0, core.ErrUpstreamUnreachable, err)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var resp gradesResponse
	if err = dec.Decode(&resp); err != nil {
		return nil, ep.error(opGrades, 0, core.ErrUpstreamUnreachable, err)
	}
	return resp.Grades, nil
}

func (ep *Endpoint) do(ctx context.Context, op, method, path, token string, payload []byte) ([]byte, error) {
	conf := ep.client.conf
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, ep.route.URL(conf.BaseURL+path), reqBody)
	if err != nil {
		return nil, ep.error(op, 0, core.ErrUpstreamUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", conf.UserAgent)
	req.Header.Set("Z-Dev-Apikey", conf.APIKey)
	if token != "" {
		req.Header.Set("Z-Auth-Token", token)
	}

	resp, err := ep.client.http.Do(req)
	if err != nil {
		return nil, ep.error(op, 0, core.ErrUpstreamUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, ep.error(op, resp.StatusCode, core.ErrUpstreamUnreachable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ep.error(op, resp.StatusCode, classify(resp.StatusCode), errors.New(snippet(body)))
	}
	return body, nil
}

func (ep *Endpoint) error(op string, status int, kind, err error) error {
	return &Error{Route: ep.route.Name, Op: op, Status: status, Kind: kind, Err: err}
}

// StudentID turns a login ident ("S1234567X") into the numeric id used in student paths.
func StudentID(ident string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, ident)
	if digits == "" {
		return ident
	}
	return digits
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
