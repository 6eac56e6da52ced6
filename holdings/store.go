// Package holdings owns the user's holdings and table preferences. A Store
// is created once at startup with an injected Persister and passed to the
// code that needs it.
package holdings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"crypto-portfolio/models"
	"crypto-portfolio/observability"
)

// LoadState is the lifecycle state of a Store
type LoadState int

const (
	StateUninitialized LoadState = iota
	StateLoaded
)

func (s LoadState) String() string {
	if s == StateLoaded {
		return "loaded"
	}
	return "uninitialized"
}

// ErrNotLoaded is returned by mutations before Load has succeeded
var ErrNotLoaded = errors.New("holdings store not loaded")

// Store holds the holdings collection, persisted preferences and volatile
// UI state. Every mutation persists a new snapshot before it becomes
// visible; a failed save leaves the store unchanged.
type Store struct {
	mu        sync.RWMutex
	persister Persister
	name      string
	state     LoadState

	holdings []models.Holding
	prefs    models.Preferences
	ui       models.UIState
}

// NewStore creates an uninitialized Store persisting under name
func NewStore(persister Persister, name string) *Store {
	return &Store{
		persister: persister,
		name:      name,
		holdings:  []models.Holding{},
		prefs:     models.Preferences{TableSorting: []models.SortColumn{}},
		ui:        models.UIState{OrderedHoldings: []models.OrderedHolding{}},
	}
}

// State returns the lifecycle state
func (s *Store) State() LoadState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Load reads the persisted snapshot. Absent state starts empty. Volatile UI
// state is reset on every load.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.persister.Load(ctx, s.name)
	var st PersistedState
	switch {
	case errors.Is(err, ErrNoState):
	case err != nil:
		return fmt.Errorf("failed to load holdings: %w", err)
	default:
		if st, err = decodeState(data); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.holdings = cloneHoldings(st.Holdings)
	s.prefs = models.Preferences{
		TableSorting:      cloneSorting(st.TableSorting),
		TableGlobalFilter: st.TableGlobalFilter,
	}
	s.ui = models.UIState{OrderedHoldings: []models.OrderedHolding{}}
	s.state = StateLoaded

	observability.GetMetrics().RecordHoldingsMutation("load", len(s.holdings))
	observability.Info("holdings loaded",
		"name", s.name,
		"count", len(s.holdings),
		"version", st.Version)
	return nil
}

// Holdings returns a copy of the collection. Before Load it is empty.
func (s *Store) Holdings() []models.Holding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneHoldings(s.holdings)
}

// Holding returns the first holding with id
func (s *Store) Holding(id string) (models.Holding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.holdings {
		if h.ID == id {
			return cloneHolding(h), true
		}
	}
	return models.Holding{}, false
}

// IDs returns the distinct holding ids in collection order
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool, len(s.holdings))
	ids := make([]string, 0, len(s.holdings))
	for _, h := range s.holdings {
		if !seen[h.ID] {
			seen[h.ID] = true
			ids = append(ids, h.ID)
		}
	}
	return ids
}

// AddHolding appends h. Ids are not deduplicated.
func (s *Store) AddHolding(ctx context.Context, h models.Holding) error {
	return s.mutate(ctx, "add", func(holdings []models.Holding, _ *models.Preferences) ([]models.Holding, bool) {
		return append(holdings, cloneHolding(h)), true
	})
}

// UpdateHolding merges update into every holding with id. It reports
// whether any holding matched; an unknown id changes nothing.
func (s *Store) UpdateHolding(ctx context.Context, id string, update models.HoldingUpdate) (bool, error) {
	matched := false
	err := s.mutate(ctx, "update", func(holdings []models.Holding, _ *models.Preferences) ([]models.Holding, bool) {
		for i := range holdings {
			if holdings[i].ID == id {
				holdings[i] = update.Apply(holdings[i])
				matched = true
			}
		}
		return holdings, matched
	})
	return matched, err
}

// RemoveHolding removes every holding with id. It reports whether any
// holding matched; an unknown id changes nothing.
func (s *Store) RemoveHolding(ctx context.Context, id string) (bool, error) {
	removed := false
	err := s.mutate(ctx, "remove", func(holdings []models.Holding, _ *models.Preferences) ([]models.Holding, bool) {
		kept := holdings[:0]
		for _, h := range holdings {
			if h.ID == id {
				removed = true
				continue
			}
			kept = append(kept, h)
		}
		return kept, removed
	})
	return removed, err
}

// Preferences returns the persisted table preferences
func (s *Store) Preferences() models.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Preferences{
		TableSorting:      cloneSorting(s.prefs.TableSorting),
		TableGlobalFilter: s.prefs.TableGlobalFilter,
	}
}

// SetPreferences replaces the table preferences
func (s *Store) SetPreferences(ctx context.Context, prefs models.Preferences) error {
	return s.mutate(ctx, "preferences", func(holdings []models.Holding, p *models.Preferences) ([]models.Holding, bool) {
		p.TableSorting = cloneSorting(prefs.TableSorting)
		p.TableGlobalFilter = prefs.TableGlobalFilter
		return holdings, true
	})
}

// UIState returns the volatile UI state
func (s *Store) UIState() models.UIState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUIState(s.ui)
}

// SetUIState replaces the volatile UI state. It is never persisted.
func (s *Store) SetUIState(ui models.UIState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ui = cloneUIState(ui)
}

// mutate applies fn to a copy of the state, persists the result and swaps
// it in. fn reports whether it changed anything; unchanged state is not
// saved.
func (s *Store) mutate(ctx context.Context, op string, fn func([]models.Holding, *models.Preferences) ([]models.Holding, bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoaded {
		return ErrNotLoaded
	}

	prefs := models.Preferences{
		TableSorting:      cloneSorting(s.prefs.TableSorting),
		TableGlobalFilter: s.prefs.TableGlobalFilter,
	}
	next, changed := fn(cloneHoldings(s.holdings), &prefs)
	if !changed {
		return nil
	}

	data, err := encodeState(PersistedState{
		Holdings:          next,
		TableSorting:      prefs.TableSorting,
		TableGlobalFilter: prefs.TableGlobalFilter,
	})
	if err != nil {
		return fmt.Errorf("failed to encode holdings: %w", err)
	}
	if err := s.persister.Save(ctx, s.name, data); err != nil {
		observability.Error("failed to persist holdings", "operation", op, "error", err)
		return fmt.Errorf("failed to save holdings: %w", err)
	}

	s.holdings = next
	s.prefs = prefs
	observability.GetMetrics().RecordHoldingsMutation(op, len(next))
	return nil
}

func cloneHolding(h models.Holding) models.Holding {
	if h.PurchaseDate != nil {
		d := *h.PurchaseDate
		h.PurchaseDate = &d
	}
	return h
}

func cloneHoldings(in []models.Holding) []models.Holding {
	out := make([]models.Holding, 0, len(in))
	for _, h := range in {
		out = append(out, cloneHolding(h))
	}
	return out
}

func cloneSorting(in []models.SortColumn) []models.SortColumn {
	out := make([]models.SortColumn, len(in))
	copy(out, in)
	return out
}

func cloneUIState(ui models.UIState) models.UIState {
	out := models.UIState{AddDialogOpen: ui.AddDialogOpen}
	if ui.HoveredSymbol != nil {
		sym := *ui.HoveredSymbol
		out.HoveredSymbol = &sym
	}
	out.OrderedHoldings = make([]models.OrderedHolding, len(ui.OrderedHoldings))
	copy(out.OrderedHoldings, ui.OrderedHoldings)
	return out
}
