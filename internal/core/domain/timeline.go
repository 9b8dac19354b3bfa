package domain

import (
	"fmt"
	"sort"
	"time"
)

// DateGranularity controls how document dates are grouped into entries.
type DateGranularity string

// Supported granularities.
const (
	GranularityDay   DateGranularity = "day"
	GranularityMonth DateGranularity = "month"
	GranularityYear  DateGranularity = "year"
)

// IsValid returns true if the granularity is recognised.
func (g DateGranularity) IsValid() bool {
	switch g {
	case GranularityDay, GranularityMonth, GranularityYear:
		return true
	default:
		return false
	}
}

// Truncate returns the start of the period containing t. The period is
// taken from t's own calendar date, not from t converted to UTC; the result
// is expressed in UTC.
func (g DateGranularity) Truncate(t time.Time) time.Time {
	switch g {
	case GranularityYear:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	case GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// Period returns the grouping key for t's own calendar date.
// Keys sort lexically in date order.
func (g DateGranularity) Period(t time.Time) string {
	switch g {
	case GranularityYear:
		return fmt.Sprintf("%04d", t.Year())
	case GranularityMonth:
		return fmt.Sprintf("%04d-%02d", t.Year(), t.Month())
	default:
		return fmt.Sprintf("%04d-%02d-%02d", t.Year(), t.Month(), t.Day())
	}
}

// String returns the string representation.
func (g DateGranularity) String() string {
	return string(g)
}

// TimelineEntry is one dated point in a case timeline.
type TimelineEntry struct {
	// Period is the grouping key (e.g. "2024-03-01" for day granularity).
	Period string `json:"period"`

	// Date is the start of the period.
	Date time.Time `json:"date"`

	// DocumentIDs lists the contributing documents, sorted.
	DocumentIDs []string `json:"document_ids"`

	// Summary is the combined summary of the contributing documents.
	Summary string `json:"summary"`
}

// Contains reports whether the entry lists the document.
func (e TimelineEntry) Contains(docID string) bool {
	for _, id := range e.DocumentIDs {
		if id == docID {
			return true
		}
	}
	return false
}

// Timeline is the dated sequence of entries for one case.
type Timeline struct {
	// CaseID is the grouping key.
	CaseID string `json:"case_id"`

	// Granularity is the date grouping used to build the entries.
	Granularity DateGranularity `json:"granularity"`

	// Description is an optional introduction over all entries.
	Description string `json:"description,omitempty"`

	// Entries are strictly ordered by date ascending.
	Entries []TimelineEntry `json:"entries"`

	// GeneratedAt is when the timeline was last (re)built.
	GeneratedAt time.Time `json:"generated_at"`
}

// Entry returns the entry for a period.
func (t Timeline) Entry(period string) (TimelineEntry, bool) {
	for _, e := range t.Entries {
		if e.Period == period {
			return e, true
		}
	}
	return TimelineEntry{}, false
}

// EntryFor returns the entry listing the document.
func (t Timeline) EntryFor(docID string) (TimelineEntry, bool) {
	for _, e := range t.Entries {
		if e.Contains(docID) {
			return e, true
		}
	}
	return TimelineEntry{}, false
}

// WithEntry returns a copy where the entry for entry.Period is replaced, or
// inserted in date order when absent. Other entries are carried over unchanged.
func (t Timeline) WithEntry(entry TimelineEntry) Timeline {
	out := t
	out.Entries = make([]TimelineEntry, 0, len(t.Entries)+1)
	replaced := false
	for _, e := range t.Entries {
		if e.Period == entry.Period {
			out.Entries = append(out.Entries, entry)
			replaced = true
			continue
		}
		out.Entries = append(out.Entries, e)
	}
	if !replaced {
		out.Entries = append(out.Entries, entry)
	}
	SortEntries(out.Entries)
	return out
}

// WithoutEntry returns a copy without the entry for period.
func (t Timeline) WithoutEntry(period string) Timeline {
	out := t
	out.Entries = make([]TimelineEntry, 0, len(t.Entries))
	for _, e := range t.Entries {
		if e.Period != period {
			out.Entries = append(out.Entries, e)
		}
	}
	return out
}

// DocumentIDs returns every document id referenced by the timeline, sorted.
func (t Timeline) DocumentIDs() []string {
	var ids []string
	for _, e := range t.Entries {
		ids = append(ids, e.DocumentIDs...)
	}
	sort.Strings(ids)
	return ids
}

// SortEntries orders entries by date ascending, breaking ties by period.
func SortEntries(entries []TimelineEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].Period < entries[j].Period
	})
}
