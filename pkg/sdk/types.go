package entrysearch

import (
	"github.com/kailas-cloud/entrysearch/internal/domain/entry"
	"github.com/kailas-cloud/entrysearch/internal/domain/filter"
	"github.com/kailas-cloud/entrysearch/internal/domain/query"
	"github.com/kailas-cloud/entrysearch/internal/scheduler"
	sessionuc "github.com/kailas-cloud/entrysearch/internal/usecase/session"
)

// Entry is a flattened content entry. Composite fields hold []Entry.
// System fields id, slug, contentType, created and modified win over same-named fields.
type Entry = entry.Record

// BlockValue is a CMS block instance, used to supply filter blocks in their stored form.
type BlockValue = entry.BlockValue

// FilterBlock is a static filter criterion.
type FilterBlock = filter.Block

// FilterMap maps a field key to its operator clause.
type FilterMap = filter.Map

// Clause maps an operator to its value.
type Clause = filter.Clause

// Query is the payload sent to the content source.
type Query = query.Query

// Clock arms debounce timers. Inject a ManualClock in tests.
type Clock = scheduler.Clock

// ManualClock is a Clock advanced explicitly.
type ManualClock = scheduler.ManualClock

// NewManualClock creates a ManualClock.
func NewManualClock() *ManualClock { return scheduler.NewManualClock() }

// Set-membership operators. Their values split on "|".
const (
	OpIn    = filter.OpIn
	OpNotIn = filter.OpNotIn
)

// Snapshot is a copy of the session state for rendering. Entries are deep copies
// owned by the caller.
type Snapshot struct {
	Search      string
	Locale      string
	PageSize    int
	CurrentPage int
	TotalPages  int
	TotalCount  int
	IsLoading   bool
	Entries     []Entry
	Filters     FilterMap
	// Err is the failure of the latest dispatched call, cleared by the next successful one.
	Err error
}

// IsEmpty reports the "no matches" state: nothing loaded and nothing pending.
func (s Snapshot) IsEmpty() bool {
	return len(s.Entries) == 0 && !s.IsLoading
}

func snapshotFromStore(s sessionuc.Snapshot) Snapshot {
	return Snapshot{
		Search:      s.Search,
		Locale:      s.Locale,
		PageSize:    s.PageSize,
		CurrentPage: s.CurrentPage,
		TotalPages:  s.TotalPages,
		TotalCount:  s.TotalCount,
		IsLoading:   s.IsLoading,
		Entries:     s.Entries,
		Filters:     s.Filters,
		Err:         s.Err,
	}
}
