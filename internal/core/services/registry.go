package services

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// VersionRegistry is the ledger of corpus versions and their active flags.
//
// Mutations are read-modify-write cycles run through VersionStore.Update, so
// each one starts from the persisted record and excludes writers in other
// processes sharing the data directory. The result is published only once
// it is persisted. Readers load the published list without locking, so they
// observe either the old or the new state and never one that failed to persist.
type VersionRegistry struct {
	mu       sync.Mutex
	store    driven.VersionStore
	versions atomic.Pointer[[]domain.CorpusVersion]
}

// NewVersionRegistry loads the persisted record. Models with several active
// versions, or with versions but none active (for example after a manual
// edit), are repaired so the newest version is the only active one.
func NewVersionRegistry(ctx context.Context, store driven.VersionStore) (*VersionRegistry, error) {
	r := &VersionRegistry{store: store}
	if _, err := r.Reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *VersionRegistry) snapshot() []domain.CorpusVersion {
	if p := r.versions.Load(); p != nil {
		return *p
	}
	return nil
}

// mutate applies change to the persisted record and publishes the result.
// change sees a repaired copy of the record and returns nil to leave it
// untouched. Errors from change are returned as they are; on any failure
// the published list is unchanged.
func (r *VersionRegistry) mutate(ctx context.Context, change func(cur []domain.CorpusVersion) ([]domain.CorpusVersion, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changeErr error
	saved, err := r.store.Update(ctx, func(cur []domain.CorpusVersion) ([]domain.CorpusVersion, error) {
		repaired := repairActive(cur)
		next, err := change(cur)
		if err != nil {
			changeErr = err
			return nil, err
		}
		if next == nil && repaired {
			next = cur
		}
		return next, nil
	})
	if changeErr != nil {
		return changeErr
	}
	if err != nil {
		return fmt.Errorf("saving version registry: %w", err)
	}
	r.versions.Store(&saved)
	return nil
}

// Create inserts v as the active version of its model, deactivating every
// other version of that model. The new entry goes first in the record.
func (r *VersionRegistry) Create(ctx context.Context, v domain.CorpusVersion) (*domain.CorpusVersion, error) {
	if err := domain.ValidateKey("model", v.ModelKey); err != nil {
		return nil, err
	}
	if err := domain.ValidateKey("version", v.VersionID); err != nil {
		return nil, err
	}

	v.Active = true
	v.Files = slices.Clone(v.Files)
	err := r.mutate(ctx, func(cur []domain.CorpusVersion) ([]domain.CorpusVersion, error) {
		if indexOf(cur, v.ModelKey, v.VersionID) >= 0 {
			return nil, fmt.Errorf("%w: version %s", domain.ErrAlreadyExists, v.Key())
		}
		next := make([]domain.CorpusVersion, 0, len(cur)+1)
		next = append(next, v)
		for _, e := range cur {
			if e.ModelKey == v.ModelKey {
				e.Active = false
			}
			next = append(next, e)
		}
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Version %s created and activated", v.Key())
	return &v, nil
}

// Activate marks the version active and every other version of its model
// inactive. Activating the sole active version changes nothing and reports
// changed=false.
func (r *VersionRegistry) Activate(ctx context.Context, modelKey, versionID string) (_ *domain.CorpusVersion, changed bool, _ error) {
	var activated domain.CorpusVersion
	err := r.mutate(ctx, func(cur []domain.CorpusVersion) ([]domain.CorpusVersion, error) {
		idx := indexOf(cur, modelKey, versionID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrVersionNotFound, modelKey, versionID)
		}
		if cur[idx].Active && activeCount(cur, modelKey) == 1 {
			activated = cur[idx]
			return nil, nil
		}

		next := cloneVersions(cur)
		for i := range next {
			if next[i].ModelKey == modelKey {
				next[i].Active = i == idx
			}
		}
		activated = next[idx]
		changed = true
		return next, nil
	})
	if err != nil {
		return nil, false, err
	}
	if changed {
		logger.Info("Version %s activated", activated.Key())
	}
	activated.Files = slices.Clone(activated.Files)
	return &activated, changed, nil
}

// Delete removes a version. When it was active, the most recently created
// remaining version of the model is promoted; with none left the model has
// no active version. The promoted version is returned, or nil.
func (r *VersionRegistry) Delete(ctx context.Context, modelKey, versionID string) (removed domain.CorpusVersion, promoted *domain.CorpusVersion, err error) {
	err = r.mutate(ctx, func(cur []domain.CorpusVersion) ([]domain.CorpusVersion, error) {
		idx := indexOf(cur, modelKey, versionID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrVersionNotFound, modelKey, versionID)
		}
		removed = cur[idx]

		next := make([]domain.CorpusVersion, 0, len(cur)-1)
		for i, e := range cur {
			if i != idx {
				e.Files = slices.Clone(e.Files)
				next = append(next, e)
			}
		}

		promoted = nil
		if removed.Active && activeCount(next, modelKey) == 0 {
			if p := newestOf(next, modelKey); p >= 0 {
				next[p].Active = true
				v := next[p]
				promoted = &v
			}
		}
		return next, nil
	})
	if err != nil {
		return domain.CorpusVersion{}, nil, err
	}
	if promoted != nil {
		logger.Info("Version %s deleted, %s promoted", removed.Key(), promoted.Key())
	} else {
		logger.Info("Version %s deleted", removed.Key())
	}
	return removed, promoted, nil
}

// Get returns one version.
func (r *VersionRegistry) Get(modelKey, versionID string) (*domain.CorpusVersion, bool) {
	cur := r.snapshot()
	if idx := indexOf(cur, modelKey, versionID); idx >= 0 {
		v := cur[idx]
		v.Files = slices.Clone(v.Files)
		return &v, true
	}
	return nil, false
}

// Active returns the active version of a model.
func (r *VersionRegistry) Active(modelKey string) (*domain.CorpusVersion, bool) {
	for _, v := range r.snapshot() {
		if v.ModelKey == modelKey && v.Active {
			v.Files = slices.Clone(v.Files)
			return &v, true
		}
	}
	return nil, false
}

// List returns a model's versions, newest first.
func (r *VersionRegistry) List(modelKey string) []domain.CorpusVersion {
	var out []domain.CorpusVersion
	for _, v := range r.snapshot() {
		if v.ModelKey == modelKey {
			out = append(out, v)
		}
	}
	out = cloneVersions(out)
	sortNewestFirst(out)
	return out
}

// All returns every version of every model, newest first.
func (r *VersionRegistry) All() []domain.CorpusVersion {
	out := cloneVersions(r.snapshot())
	sortNewestFirst(out)
	return out
}

// ActiveVersions returns the active version of every trained model.
func (r *VersionRegistry) ActiveVersions() []domain.CorpusVersion {
	var out []domain.CorpusVersion
	for _, v := range r.snapshot() {
		if v.Active {
			out = append(out, v)
		}
	}
	return out
}

// Reload re-reads the persisted record, repairs its active flags and
// publishes the result. It returns the models whose active version changed.
func (r *VersionRegistry) Reload(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	loaded, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading version registry: %w", err)
	}

	if repairActive(cloneVersions(loaded)) {
		logger.Warn("Version registry had models without exactly one active version; activated the newest")
		repaired, err := r.store.Update(ctx, func(cur []domain.CorpusVersion) ([]domain.CorpusVersion, error) {
			if repairActive(cur) {
				return cur, nil
			}
			return nil, nil
		})
		if err != nil {
			logger.Warn("Could not persist repaired registry: %v", err)
			repairActive(loaded)
		} else {
			loaded = repaired
		}
	}

	prev := r.snapshot()
	r.versions.Store(&loaded)
	return changedModels(prev, loaded), nil
}

func indexOf(versions []domain.CorpusVersion, modelKey, versionID string) int {
	for i, v := range versions {
		if v.ModelKey == modelKey && v.VersionID == versionID {
			return i
		}
	}
	return -1
}

func activeCount(versions []domain.CorpusVersion, modelKey string) int {
	n := 0
	for _, v := range versions {
		if v.ModelKey == modelKey && v.Active {
			n++
		}
	}
	return n
}

// newestOf returns the index of the most recently created version of a
// model; ties go to the earlier record position.
func newestOf(versions []domain.CorpusVersion, modelKey string) int {
	best := -1
	for i, v := range versions {
		if v.ModelKey != modelKey {
			continue
		}
		if best < 0 || v.CreatedAt.After(versions[best].CreatedAt) {
			best = i
		}
	}
	return best
}

// repairActive leaves exactly one active version per model, keeping the
// newest active one, or activating the newest version of a model that has
// none active. It reports whether anything changed.
func repairActive(versions []domain.CorpusVersion) bool {
	keep := make(map[string]int)
	for i, v := range versions {
		if !v.Active {
			continue
		}
		j, seen := keep[v.ModelKey]
		if !seen || v.CreatedAt.After(versions[j].CreatedAt) {
			keep[v.ModelKey] = i
		}
	}
	for _, v := range versions {
		if _, ok := keep[v.ModelKey]; !ok {
			keep[v.ModelKey] = newestOf(versions, v.ModelKey)
		}
	}

	changed := false
	for i := range versions {
		want := keep[versions[i].ModelKey] == i
		if versions[i].Active != want {
			versions[i].Active = want
			changed = true
		}
	}
	return changed
}

func changedModels(prev, next []domain.CorpusVersion) []string {
	active := func(vs []domain.CorpusVersion) map[string]string {
		m := make(map[string]string)
		for _, v := range vs {
			if _, ok := m[v.ModelKey]; !ok {
				m[v.ModelKey] = ""
			}
			if v.Active {
				m[v.ModelKey] = v.VersionID
			}
		}
		return m
	}
	before, after := active(prev), active(next)

	var models []string
	for m, v := range after {
		if b, ok := before[m]; !ok || b != v {
			models = append(models, m)
		}
	}
	for m := range before {
		if _, ok := after[m]; !ok {
			models = append(models, m)
		}
	}
	sort.Strings(models)
	return models
}

func sortNewestFirst(versions []domain.CorpusVersion) {
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].CreatedAt.After(versions[j].CreatedAt)
	})
}

func cloneVersions(in []domain.CorpusVersion) []domain.CorpusVersion {
	out := make([]domain.CorpusVersion, len(in))
	for i, v := range in {
		v.Files = slices.Clone(v.Files)
		out[i] = v
	}
	return out
}
