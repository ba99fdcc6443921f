package grade

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/gablilli/selfhosted-classeviva/core"
)

// Fetcher fetches the raw grade records of a student from one upstream route.
type Fetcher interface {
	Name() string
	FetchGrades(ctx context.Context, upstreamToken, userID string) ([]RawGrade, error)
}

type ServiceInterface interface {
	Retrieve(ctx context.Context, upstreamToken, userID string) (Result, error)
	History(ctx context.Context, userID string, orderings []core.DBOrdering) ([]StoredGrade, error)
}

type Service struct {
	fetchers  []Fetcher
	repo      Repository
	synthetic Source
	resolve   SubjectResolver
	logger    core.Logger
	conf      *core.Config
	group     singleflight.Group
}

var _ ServiceInterface = (*Service)(nil)

func NewService(fetchers []Fetcher, repo Repository, synthetic Source, logger core.Logger, conf *core.Config) *Service {
	if synthetic == nil {
		synthetic = FixedSource{}
	}
	return &Service{
		fetchers:  fetchers,
		repo:      repo,
		synthetic: synthetic,
		resolve:   ResolveSubject,
		logger:    logger,
		conf:      conf,
	}
}

// Retrieve returns the subjects of the user.
// The demo user and sessions without an upstream token get synthetic data, as do upstream outages.
// A rejected upstream token is returned as ErrUpstreamRejected.
func (svc *Service) Retrieve(ctx context.Context, upstreamToken, userID string) (Result, error) {
	if IsDemo(userID) || upstreamToken == "" {
		return svc.syntheticResult(userID), nil
	}

	// identical concurrent requests share one upstream round-trip, detached from any single caller
	shared := context.WithoutCancel(ctx)
	ch := svc.group.DoChan(userID+"\x00"+upstreamToken, func() (interface{}, error) {
		grades, err := svc.fetch(shared, upstreamToken, userID)
		if err != nil {
			return nil, err
		}
		svc.persist(shared, userID, grades)
		return grades, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return Result{}, errors.Wrap(ctx.Err(), "retrieving grades")
	case res = <-ch:
	}
	if res.Err != nil {
		if core.IsUpstreamRejected(res.Err) {
			return Result{}, ErrUpstreamRejected
		}
		svc.logger.Warn(fmt.Sprintf("fetching grades for %s failed, serving synthetic data", userID), res.Err)
		return svc.syntheticResult(userID), nil
	}

	return Result{Subjects: Aggregate(res.Val.([]Grade))}, nil
}

func (svc *Service) fetch(ctx context.Context, upstreamToken, userID string) ([]Grade, error) {
	ctx, cancel := context.WithTimeout(ctx, svc.totalTimeout())
	defer cancel()

	strategies := make([]core.Strategy[[]RawGrade], 0, len(svc.fetchers))
	for _, f := range svc.fetchers {
		f := f
		strategies = append(strategies, core.Strategy[[]RawGrade]{
			Name: f.Name(),
			Try: func(ctx context.Context) ([]RawGrade, error) {
				return f.FetchGrades(ctx, upstreamToken, userID)
			},
		})
	}

	raws, _, err := core.FirstSuccess(ctx, core.ChainOptions{
		AttemptTimeout: svc.conf.Upstream.AttemptTimeout,
		Logger:         svc.logger,
	}, strategies...)
	if err != nil {
		return nil, errors.Wrap(err, "fetching grades")
	}

	grades, dropped := NormalizeAll(raws, svc.resolve)
	if dropped > 0 {
		svc.logger.Debug(fmt.Sprintf("dropped %d grade record(s) without a usable value", dropped))
	}
	return grades, nil
}

// persist caches the grades; the cache is an audit log, so failures never fail the retrieval.
func (svc *Service) persist(ctx context.Context, userID string, grades []Grade) {
	if svc.repo == nil || len(grades) == 0 {
		return
	}
	n, err := svc.repo.InsertGrades(ctx, userID, grades)
	if err != nil {
		svc.logger.Error("caching grades", errors.Wrap(err, "inserting grades"))
		return
	}
	svc.logger.Debug(fmt.Sprintf("cached %d new grade(s) for %s", n, userID))
}

func (svc *Service) syntheticResult(userID string) Result {
	return Result{Subjects: svc.synthetic.Subjects(userID), Synthetic: true}
}

// History lists the cached grades of the user.
func (svc *Service) History(ctx context.Context, userID string, orderings []core.DBOrdering) ([]StoredGrade, error) {
	if svc.repo == nil {
		return []StoredGrade{}, nil
	}
	grades, err := svc.repo.QueryGrades(ctx, userID, orderings)
	if err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	return grades, nil
}

func (svc *Service) totalTimeout() time.Duration {
	if svc.conf.Upstream.TotalTimeout > 0 {
		return svc.conf.Upstream.TotalTimeout
	}
	return 25 * time.Second
}
