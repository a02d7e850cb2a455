package syncer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/spellsync/internal/database"
	"github.com/example/spellsync/internal/remote"
	"github.com/example/spellsync/pkg/models"
)

// CollectionReport counts what reconciliation did to one collection
type CollectionReport struct {
	Pushed    int
	Pulled    int
	Unchanged int
}

func (c CollectionReport) add(o CollectionReport) CollectionReport {
	return CollectionReport{
		Pushed:    c.Pushed + o.Pushed,
		Pulled:    c.Pulled + o.Pulled,
		Unchanged: c.Unchanged + o.Unchanged,
	}
}

// Report is the outcome of one reconciliation
type Report struct {
	Settings   CollectionReport
	Progress   CollectionReport
	Statistics CollectionReport
	Results    CollectionReport
}

// Total sums every collection
func (r Report) Total() CollectionReport {
	return r.Settings.add(r.Progress).add(r.Statistics).add(r.Results)
}

// Reconciler brings local and remote documents of a user to the same state.
// Settings, progress and statistics resolve by last write; results are
// append-only and merged by ID.
type Reconciler struct {
	local  *database.Repositories
	remote remote.DocumentStore
	logger *zap.Logger
}

func NewReconciler(local *database.Repositories, store remote.DocumentStore, logger *zap.Logger) *Reconciler {
	return &Reconciler{local: local, remote: store, logger: logger}
}

func (r *Reconciler) Reconcile(ctx context.Context, userID string) (Report, error) {
	var report Report
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		local := map[string]*models.Settings{}
		s, err := r.local.Settings.Get(ctx, userID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return err
		}
		if s != nil {
			local[models.SettingsDocID] = s
		}
		report.Settings, err = reconcileLatest(ctx, r.remote, userID, remote.CollectionSettings, local,
			func() *models.Settings { return new(models.Settings) },
			r.local.Settings.Save)
		return err
	})

	g.Go(func() error {
		local := map[string]*models.Statistics{}
		s, err := r.local.Statistics.Get(ctx, userID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return err
		}
		if s != nil {
			local[models.StatisticsDocID] = s
		}
		report.Statistics, err = reconcileLatest(ctx, r.remote, userID, remote.CollectionStatistics, local,
			func() *models.Statistics { return new(models.Statistics) },
			r.local.Statistics.Save)
		return err
	})

	g.Go(func() error {
		list, err := r.local.Progress.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		local := make(map[string]*models.Progress, len(list))
		for _, p := range list {
			local[p.DocID()] = p
		}
		report.Progress, err = reconcileLatest(ctx, r.remote, userID, remote.CollectionProgress, local,
			func() *models.Progress { return new(models.Progress) },
			r.local.Progress.Save)
		return err
	})

	g.Go(func() error {
		var err error
		report.Results, err = r.reconcileResults(ctx, userID)
		return err
	})

	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("failed to reconcile user %s: %w", userID, err)
	}

	total := report.Total()
	r.logger.Info("Reconciled",
		zap.String("user_id", userID),
		zap.Int("pushed", total.Pushed),
		zap.Int("pulled", total.Pulled),
		zap.Int("unchanged", total.Unchanged))
	return report, nil
}

// reconcileLatest keeps, for every document ID, whichever side was written last
func reconcileLatest[T models.Timestamped](
	ctx context.Context,
	store remote.DocumentStore,
	userID, collection string,
	local map[string]T,
	fresh func() T,
	save func(context.Context, T) error,
) (CollectionReport, error) {
	var rep CollectionReport

	docs, err := store.List(ctx, userID, collection)
	if err != nil {
		return rep, err
	}
	remoteDocs := make(map[string]remote.Document, len(docs))
	for _, d := range docs {
		remoteDocs[d.Ref.ID] = d
	}

	push := func(id string, v T) error {
		doc, err := remote.NewDocument(remote.DocRef{UserID: userID, Collection: collection, ID: id}, v, models.NormalizeStamp(v.Stamp()))
		if err != nil {
			return err
		}
		rep.Pushed++
		return store.Set(ctx, doc)
	}
	pull := func(doc remote.Document) error {
		v := fresh()
		if err := doc.Decode(v); err != nil {
			return err
		}
		rep.Pulled++
		return save(ctx, v)
	}

	for id, l := range local {
		doc, ok := remoteDocs[id]
		if !ok {
			if err := push(id, l); err != nil {
				return rep, err
			}
			continue
		}
		ls := models.NormalizeStamp(l.Stamp())
		rs := models.NormalizeStamp(doc.UpdatedAt)
		switch {
		case ls.After(rs):
			err = push(id, l)
		case rs.After(ls):
			err = pull(doc)
		default:
			rep.Unchanged++
		}
		if err != nil {
			return rep, err
		}
	}

	for id, doc := range remoteDocs {
		if _, ok := local[id]; ok {
			continue
		}
		if err := pull(doc); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (r *Reconciler) reconcileResults(ctx context.Context, userID string) (CollectionReport, error) {
	var rep CollectionReport

	local, err := r.local.Results.ListByUser(ctx, userID)
	if err != nil {
		return rep, err
	}
	docs, err := r.remote.List(ctx, userID, remote.CollectionResults)
	if err != nil {
		return rep, err
	}

	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		seen[d.Ref.ID] = true
	}

	for _, res := range local {
		if seen[res.ID] {
			rep.Unchanged++
			delete(seen, res.ID)
			continue
		}
		doc, err := remote.NewDocument(remote.DocRef{UserID: userID, Collection: remote.CollectionResults, ID: res.ID}, res, models.NormalizeStamp(res.Stamp()))
		if err != nil {
			return rep, err
		}
		if err := r.remote.Set(ctx, doc); err != nil {
			return rep, err
		}
		rep.Pushed++
	}

	for _, d := range docs {
		if !seen[d.Ref.ID] {
			continue
		}
		var res models.SessionResult
		if err := d.Decode(&res); err != nil {
			return rep, err
		}
		if res.ID == "" {
			res.ID = d.Ref.ID
		}
		if err := r.local.Results.Create(ctx, &res); err != nil {
			return rep, err
		}
		rep.Pulled++
	}
	return rep, nil
}
