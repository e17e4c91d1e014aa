package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// DefaultPageSize is the number of cards shown per page.
const DefaultPageSize = 9

// ErrViewUnmounted is returned by Wait once the view has been torn down.
var ErrViewUnmounted = errors.New("catalog: view unmounted")

// Phase is the position of a view in its load lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseLoadedEmpty
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseLoadedEmpty:
		return "loaded-empty"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ViewState is everything the listing page renders from.
type ViewState struct {
	Phase           Phase
	Loading         bool
	Error           string
	Products        []Product
	SelectedSort    SortOption
	SortMenuOpen    bool
	FilterPanelOpen bool
	Filter          Filter
	Page            int
}

// Listing is the derived, displayable slice of a view: filtered, sorted and
// paginated from the fetched collection.
type Listing struct {
	Total    int
	Products []Product
	Sort     SortOption
	Page     Page
}

// ViewOption customises a view.
type ViewOption func(*View)

// WithPageSize sets the page size. Zero disables pagination.
func WithPageSize(size int) ViewOption {
	return func(v *View) {
		if size >= 0 {
			v.pageSize = size
		}
	}
}

// WithViewLogger attaches a logger to the view.
func WithViewLogger(logger *zap.Logger) ViewOption {
	return func(v *View) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// View owns the state of one mounted product listing page.
type View struct {
	id       string
	fetcher  Fetcher
	pageSize int
	logger   *zap.Logger

	mountOnce sync.Once
	cancel    context.CancelFunc
	resolved  chan struct{}
	unmounted chan struct{}
	fetchDone chan struct{}

	mu      sync.RWMutex
	state   ViewState
	mounted bool
	closed  bool
}

// NewView returns an idle view backed by fetcher.
func NewView(id string, fetcher Fetcher, opts ...ViewOption) *View {
	v := &View{
		id:        id,
		fetcher:   fetcher,
		pageSize:  DefaultPageSize,
		logger:    zap.NewNop(),
		resolved:  make(chan struct{}),
		unmounted: make(chan struct{}),
		fetchDone: make(chan struct{}),
		state: ViewState{
			Phase:        PhaseIdle,
			Products:     []Product{},
			SelectedSort: DefaultSort(),
			Page:         1,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	v.logger = v.logger.With(zap.String("view_id", id))
	return v
}

// ID returns the view identifier.
func (v *View) ID() string { return v.id }

// Mount enters Loading and starts the single fetch for this view. The fetch
// runs under a context derived from ctx that Unmount cancels. Later calls are
// no-ops.
func (v *View) Mount(ctx context.Context) {
	v.mountOnce.Do(func() {
		v.mu.Lock()
		if v.closed {
			v.mu.Unlock()
			close(v.fetchDone)
			return
		}
		fetchCtx, cancel := context.WithCancel(ctx)
		v.cancel = cancel
		v.mounted = true
		v.state = ViewState{
			Phase:           PhaseLoading,
			Loading:         true,
			Products:        []Product{},
			SelectedSort:    DefaultSort(),
			FilterPanelOpen: false,
			Page:            1,
		}
		v.mu.Unlock()

		v.logger.Debug("view mounted")
		go v.runFetch(fetchCtx)
	})
}

func (v *View) runFetch(ctx context.Context) {
	defer close(v.fetchDone)
	var products []Product
	if v.fetcher != nil {
		products = v.fetcher.FetchProducts(ctx)
	}
	if products == nil {
		products = []Product{}
	}
	v.resolve(products)
}

// resolve applies the fetch outcome once, and only while still mounted.
func (v *View) resolve(products []Product) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.mounted || v.state.Phase != PhaseLoading {
		v.logger.Debug("discarding fetch result for unmounted view", zap.Int("count", len(products)))
		return
	}
	v.state.Products = products
	v.state.Loading = false
	if len(products) == 0 {
		v.state.Phase = PhaseLoadedEmpty
	} else {
		v.state.Phase = PhaseLoaded
	}
	close(v.resolved)
	v.logger.Debug("view resolved", zap.Stringer("phase", v.state.Phase), zap.Int("count", len(products)))
}

// Wait blocks until the fetch has resolved, the view is unmounted, or ctx is
// done.
func (v *View) Wait(ctx context.Context) error {
	select {
	case <-v.resolved:
		return nil
	default:
	}
	select {
	case <-v.resolved:
		return nil
	case <-v.unmounted:
		return ErrViewUnmounted
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FetchDone is closed when the fetch goroutine has returned.
func (v *View) FetchDone() <-chan struct{} { return v.fetchDone }

// Unmount cancels the in-flight fetch and drops any late result.
func (v *View) Unmount() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mounted = false
	cancel := v.cancel
	close(v.unmounted)
	v.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	// Unblock FetchDone for views that were never mounted.
	v.mountOnce.Do(func() { close(v.fetchDone) })
	v.logger.Debug("view unmounted")
}

// Mounted reports whether the view is mounted and not yet torn down.
func (v *View) Mounted() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mounted
}

// Snapshot returns a deep copy of the current state.
func (v *View) Snapshot() ViewState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	st := v.state
	st.Products = cloneProducts(v.state.Products)
	st.Filter = v.state.Filter.clone()
	return st
}

// Listing derives the current page of products without re-fetching.
func (v *View) Listing() Listing {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.listingLocked()
}

func (v *View) listingLocked() Listing {
	filtered := v.state.Filter.Apply(v.state.Products)
	sorted := SortProducts(filtered, v.state.SelectedSort)
	items, page := Paginate(sorted, v.state.Page, v.pageSize)
	return Listing{
		Total:    len(filtered),
		Products: cloneProducts(items),
		Sort:     v.state.SelectedSort,
		Page:     page,
	}
}

// SelectSort picks a sort option by value, closes the sort menu and returns
// to the first page.
func (v *View) SelectSort(value string) error {
	opt, err := LookupSort(value)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.SelectedSort = opt
	v.state.SortMenuOpen = false
	v.state.Page = 1
	return nil
}

// ToggleSortMenu flips the sort dropdown and returns the new state.
func (v *View) ToggleSortMenu() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.SortMenuOpen = !v.state.SortMenuOpen
	return v.state.SortMenuOpen
}

// CloseSortMenu closes the sort dropdown.
func (v *View) CloseSortMenu() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.SortMenuOpen = false
}

// OpenFilterPanel shows the mobile filter panel.
func (v *View) OpenFilterPanel() {
	v.setFilterPanel(true)
}

// CloseFilterPanel hides the mobile filter panel.
func (v *View) CloseFilterPanel() {
	v.setFilterPanel(false)
}

func (v *View) setFilterPanel(open bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.FilterPanelOpen = open
}

// ApplyFilter replaces the filter criteria and returns to the first page.
func (v *View) ApplyFilter(f Filter) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Filter = f.clone()
	v.state.Page = 1
}

// SetPage moves to page n, clamped to the available pages, and returns the
// page actually selected.
func (v *View) SetPage(n int) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	total := len(v.state.Filter.Apply(v.state.Products))
	v.state.Page = ClampPage(n, TotalPages(total, v.pageSize))
	return v.state.Page
}
