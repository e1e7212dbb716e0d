package dashboard

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/cache"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/incidents"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/plantdata"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/plants"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/scope"
)

// Metrics is the aggregated summary shown on the dashboard landing view.
type Metrics struct {
	PlantCount      int                   `json:"plantCount"`
	OpenIncidences  int64                 `json:"openIncidences"`
	LatestByPlant   []*models.PlantMetric `json:"latestByPlant"`
}

// Full bundles every dashboard section into one payload.
type Full struct {
	Metrics          *Metrics             `json:"metrics"`
	Plants           []*models.Plant      `json:"plants"`
	RecentIncidences []*models.Incidence  `json:"recentIncidences"`
}

// Service assembles dashboard payloads with a per-user cache in front.
// Entries are cached under the caller's user ID so two users never see
// each other's scoped data.
type Service struct {
	cache     cache.Cache
	plants    *plants.Service
	data      *plantdata.Service
	incidents *incidents.Service
	log       *logrus.Logger
}

func NewService(c cache.Cache, p *plants.Service, d *plantdata.Service, i *incidents.Service, log *logrus.Logger) *Service {
	return &Service{cache: c, plants: p, data: d, incidents: i, log: log}
}

// Metrics returns the aggregated dashboard metrics. The second return
// value reports whether the payload was served from cache.
func (s *Service) Metrics(ctx context.Context, userID int64, sc scope.Descriptor) (*Metrics, bool, error) {
	var cached Metrics
	if ok := s.lookup(ctx, userID, cache.KeyMetrics, &cached); ok {
		return &cached, true, nil
	}

	m, err := s.buildMetrics(ctx, sc)
	if err != nil {
		return nil, false, err
	}
	s.store(ctx, userID, cache.KeyMetrics, m)
	return m, false, nil
}

// Plants returns the caller's visible plants, cached per user.
func (s *Service) Plants(ctx context.Context, userID int64, sc scope.Descriptor) ([]*models.Plant, bool, error) {
	var cached []*models.Plant
	if ok := s.lookup(ctx, userID, cache.KeyPlants, &cached); ok {
		return cached, true, nil
	}

	list, err := s.plants.List(ctx, sc, 100, 0)
	if err != nil {
		return nil, false, err
	}
	s.store(ctx, userID, cache.KeyPlants, list)
	return list, false, nil
}

// Full returns the complete dashboard payload. Sections are fetched
// concurrently on a cache miss.
func (s *Service) Full(ctx context.Context, userID int64, sc scope.Descriptor) (*Full, bool, error) {
	var cached Full
	if ok := s.lookup(ctx, userID, cache.KeyDashboard, &cached); ok {
		return &cached, true, nil
	}

	full := &Full{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.buildMetrics(gctx, sc)
		if err != nil {
			return err
		}
		full.Metrics = m
		return nil
	})
	g.Go(func() error {
		list, err := s.plants.List(gctx, sc, 100, 0)
		if err != nil {
			return err
		}
		full.Plants = list
		return nil
	})
	g.Go(func() error {
		recent, err := s.incidents.List(gctx, sc, incidents.ListFilter{}, 10, 0)
		if err != nil {
			return err
		}
		full.RecentIncidences = recent
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	s.store(ctx, userID, cache.KeyDashboard, full)
	return full, false, nil
}

// InvalidateUser drops every cached dashboard entry for one user.
func (s *Service) InvalidateUser(ctx context.Context, userID int64) error {
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to invalidate user cache: %w", err)
	}
	return nil
}

// InvalidateAll drops the entire dashboard cache.
func (s *Service) InvalidateAll(ctx context.Context) error {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}

// Stats exposes cache hit/miss counters for the admin endpoint.
func (s *Service) Stats(ctx context.Context) (cache.Stats, error) {
	return s.cache.Stats(ctx)
}

func (s *Service) buildMetrics(ctx context.Context, sc scope.Descriptor) (*Metrics, error) {
	m := &Metrics{LatestByPlant: []*models.PlantMetric{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		latest, err := s.data.LatestMetrics(gctx, sc)
		if err != nil {
			return err
		}
		m.LatestByPlant = latest
		m.PlantCount = len(latest)
		return nil
	})
	g.Go(func() error {
		open, err := s.incidents.CountOpen(gctx, sc)
		if err != nil {
			return err
		}
		m.OpenIncidences = open
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}

// lookup reads and decodes a cached entry. Cache failures degrade to a
// miss rather than failing the request.
func (s *Service) lookup(ctx context.Context, userID int64, name string, out interface{}) bool {
	raw, ok, err := s.cache.Get(ctx, userID, name)
	if err != nil {
		s.log.WithError(err).WithField("key", name).Warn("dashboard cache read failed")
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.log.WithError(err).WithField("key", name).Warn("dashboard cache entry corrupt")
		return false
	}
	return true
}

func (s *Service) store(ctx context.Context, userID int64, name string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.WithError(err).WithField("key", name).Warn("dashboard cache encode failed")
		return
	}
	if err := s.cache.Set(ctx, userID, name, raw); err != nil {
		s.log.WithError(err).WithField("key", name).Warn("dashboard cache write failed")
	}
}
