package grade

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gablilli/selfhosted-classeviva/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type fakeFetcher struct {
	name  string
	raws  []RawGrade
	err   error
	delay time.Duration
	calls int32
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) FetchGrades(ctx context.Context, token, userID string) ([]RawGrade, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, errors.Wrap(core.ErrUpstreamUnreachable, ctx.Err().Error())
		}
	}
	return f.raws, f.err
}

type fakeRepo struct {
	mu     sync.Mutex
	rows   map[string]Grade
	err    error
	called int
}

func (r *fakeRepo) InsertGrades(ctx context.Context, userID string, grades []Grade) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.called++
	if r.err != nil {
		return 0, r.err
	}
	if r.rows == nil {
		r.rows = make(map[string]Grade)
	}
	var n int
	for _, gr := range grades {
		key := userID + "|" + gr.Subject + "|" + gr.Date + "|" + gr.Description
		if _, ok := r.rows[key]; !ok {
			r.rows[key] = gr
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) QueryGrades(ctx context.Context, userID string, orderings []core.DBOrdering) ([]StoredGrade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := make([]StoredGrade, 0, len(r.rows))
	for _, gr := range r.rows {
		rows = append(rows, StoredGrade{Grade: gr, UserID: userID})
	}
	return rows, nil
}

var upstreamRaws = []RawGrade{
	{"evtId": float64(1), "subjectDesc": "MATEMATICA", "displayValue": "8", "evtDate": "2024-01-15", "componentDesc": "Scritto"},
	{"evtId": float64(2), "subjectDesc": "MATEMATICA", "displayValue": "abc", "evtDate": "2024-01-16"},
	{"evtId": float64(3), "subjectDesc": "ITALIANO", "displayValue": "6-", "evtDate": "2024-01-17", "componentDesc": "Orale"},
	{"evtId": float64(4), "subjectDesc": "MATEMATICA", "displayValue": "7+", "evtDate": "2024-01-18", "componentDesc": "Orale"},
}

func newTestService(repo Repository, fetchers ...Fetcher) *Service {
	conf := &core.Config{}
	conf.Upstream.AttemptTimeout = time.Second
	conf.Upstream.TotalTimeout = 2 * time.Second
	return NewService(fetchers, repo, FixedSource{}, nopLogger{}, conf)
}

func TestService_Retrieve(t *testing.T) {
	unreachable := errors.Wrap(core.ErrUpstreamUnreachable, "status 503")
	rejected := errors.Wrap(core.ErrUpstreamRejected, "status 401")

	tests := []struct {
		name          string
		token         string
		userID        string
		fetchers      []*fakeFetcher
		wantSynthetic bool
		wantErr       error
		wantCalls     []int32
		wantCached    int
	}{
		{
			name: "demo user never calls upstream", token: "cv-token", userID: "Demo",
			fetchers: []*fakeFetcher{{name: "direct", raws: upstreamRaws}}, wantSynthetic: true, wantCalls: []int32{0},
		},
		{
			name: "no upstream token", userID: "S1234567X",
			fetchers: []*fakeFetcher{{name: "direct", raws: upstreamRaws}}, wantSynthetic: true, wantCalls: []int32{0},
		},
		{
			name: "direct success", token: "cv-token", userID: "S1234567X",
			fetchers:  []*fakeFetcher{{name: "direct", raws: upstreamRaws}, {name: "relay-1"}},
			wantCalls: []int32{1, 0}, wantCached: 3,
		},
		{
			name: "relay success", token: "cv-token", userID: "S1234567X",
			fetchers:  []*fakeFetcher{{name: "direct", err: unreachable}, {name: "relay-1", raws: upstreamRaws}},
			wantCalls: []int32{1, 1}, wantCached: 3,
		},
		{
			name: "all unreachable falls back to synthetic", token: "cv-token", userID: "S1234567X",
			fetchers:      []*fakeFetcher{{name: "direct", err: unreachable}, {name: "relay-1", err: unreachable}},
			wantSynthetic: true, wantCalls: []int32{1, 1},
		},
		{
			name: "rejected token propagates", token: "expired", userID: "S1234567X",
			fetchers: []*fakeFetcher{{name: "direct", err: rejected}, {name: "relay-1", raws: upstreamRaws}},
			wantErr:  ErrUpstreamRejected, wantCalls: []int32{1, 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(fakeRepo)
			fetchers := make([]Fetcher, 0, len(tt.fetchers))
			for _, f := range tt.fetchers {
				fetchers = append(fetchers, f)
			}
			svc := newTestService(repo, fetchers...)

			res, err := svc.Retrieve(context.Background(), tt.token, tt.userID)
			for i, f := range tt.fetchers {
				assert.Equal(t, tt.wantCalls[i], atomic.LoadInt32(&f.calls), f.name)
			}
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSynthetic, res.Synthetic)
			assert.Len(t, repo.rows, tt.wantCached)
			if tt.wantSynthetic {
				assert.Equal(t, FixedSource{}.Subjects(tt.userID), res.Subjects)
				return
			}

			require.Len(t, res.Subjects, 2)
			assert.Equal(t, "MATEMATICA", res.Subjects[0].Name)
			assert.Equal(t, 7.63, res.Subjects[0].Average)
			assert.Len(t, res.Subjects[0].Grades, 2)
			assert.Equal(t, "ITALIANO", res.Subjects[1].Name)
			assert.Equal(t, 5.75, res.Subjects[1].Average)
			assert.Equal(t, TypeOral, res.Subjects[1].Grades[0].Type)
		})
	}
}

func TestService_Retrieve_cacheFailureStillServes(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection refused")}
	svc := newTestService(repo, &fakeFetcher{name: "direct", raws: upstreamRaws})

	res, err := svc.Retrieve(context.Background(), "cv-token", "S1234567X")
	require.NoError(t, err)
	assert.False(t, res.Synthetic)
	assert.Len(t, res.Subjects, 2)
	assert.Equal(t, 1, repo.called)
}

func TestService_Retrieve_insertIfAbsent(t *testing.T) {
	repo := new(fakeRepo)
	svc := newTestService(repo, &fakeFetcher{name: "direct", raws: upstreamRaws})

	for i := 0; i < 3; i++ {
		_, err := svc.Retrieve(context.Background(), "cv-token", "S1234567X")
		require.NoError(t, err)
	}
	assert.Len(t, repo.rows, 3)
}

func TestService_Retrieve_collapsesConcurrentCalls(t *testing.T) {
	fetcher := &fakeFetcher{name: "direct", raws: upstreamRaws, delay: 50 * time.Millisecond}
	svc := newTestService(new(fakeRepo), fetcher)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Retrieve(context.Background(), "cv-token", "S1234567X")
			assert.NoError(t, err)
			assert.Len(t, res.Subjects, 2)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&fetcher.calls), int32(5))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&fetcher.calls), int32(1))
}

func TestService_Retrieve_abandonedCallerDoesNotAffectOthers(t *testing.T) {
	fetcher := &fakeFetcher{name: "direct", raws: upstreamRaws, delay: 200 * time.Millisecond}
	repo := new(fakeRepo)
	svc := newTestService(repo, fetcher)

	leaving, cancel := context.WithCancel(context.Background())
	leftErr := make(chan error, 1)
	go func() {
		_, err := svc.Retrieve(leaving, "cv-token", "S1234567X")
		leftErr <- err
	}()

	// let the first caller start the shared fetch, then join it and hang up the first one
	time.Sleep(20 * time.Millisecond)
	stayed := make(chan Result, 1)
	go func() {
		res, err := svc.Retrieve(context.Background(), "cv-token", "S1234567X")
		assert.NoError(t, err)
		stayed <- res
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	err := <-leftErr
	require.Error(t, err)
	assert.Equal(t, context.Canceled, errors.Cause(err))

	res := <-stayed
	assert.False(t, res.Synthetic)
	assert.Len(t, res.Subjects, 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Len(t, repo.rows, 3)
}

func TestService_History(t *testing.T) {
	repo := new(fakeRepo)
	svc := newTestService(repo, &fakeFetcher{name: "direct", raws: upstreamRaws})
	_, err := svc.Retrieve(context.Background(), "cv-token", "S1234567X")
	require.NoError(t, err)

	rows, err := svc.History(context.Background(), "S1234567X", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}
