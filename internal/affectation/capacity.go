package affectation

import (
	"fmt"
	"sort"

	"github.com/noah-isme/internship-affectation/internal/models"
)

type cellKey struct {
	OrganizationID string
	SpecialityID   string
	Period         int
}

type poolKey struct {
	OrganizationID string
	Period         int
}

// CapacityTable tracks remaining places per (organization, speciality, period) cell.
// Shared specialities draw on a single pool per (organization, period).
// The error organization is unbounded and never counts as untouched.
type CapacityTable struct {
	kinds        map[string]models.SpecialityKind
	unbounded    string
	remaining    map[cellKey]int
	original     map[cellKey]int
	pool         map[poolKey]int
	poolOriginal map[poolKey]int
}

// NewCapacityTable initialises the table from declared places.
func NewCapacityTable(places []models.PeriodPlaces, periods map[string]int, kinds map[string]models.SpecialityKind, unboundedOrgID string) (*CapacityTable, error) {
	table := &CapacityTable{
		kinds:        kinds,
		unbounded:    unboundedOrgID,
		remaining:    make(map[cellKey]int, len(places)),
		original:     make(map[cellKey]int, len(places)),
		pool:         make(map[poolKey]int),
		poolOriginal: make(map[poolKey]int),
	}
	for _, place := range places {
		period, ok := periods[place.PeriodID]
		if !ok {
			return nil, fmt.Errorf("%w: period %s", ErrUnknownReference, place.PeriodID)
		}
		if place.NumberPlaces < 0 {
			return nil, fmt.Errorf("%w: negative places for %s", ErrInvalidDataset, place.ID)
		}
		key := cellKey{place.OrganizationID, place.SpecialityID, period}
		if _, dup := table.original[key]; dup {
			return nil, fmt.Errorf("%w: duplicate places %s for organization %s speciality %s P%d",
				ErrInvalidDataset, place.ID, place.OrganizationID, place.SpecialityID, period)
		}
		table.remaining[key] = place.NumberPlaces
		table.original[key] = place.NumberPlaces
		if kinds[place.SpecialityID] == models.SpecialityKindShared {
			pk := poolKey{place.OrganizationID, period}
			if place.NumberPlaces > table.poolOriginal[pk] {
				table.poolOriginal[pk] = place.NumberPlaces
				table.pool[pk] = place.NumberPlaces
			}
		}
	}
	return table, nil
}

// Clone returns an independent copy sharing only immutable lookups.
func (t *CapacityTable) Clone() *CapacityTable {
	clone := &CapacityTable{
		kinds:        t.kinds,
		unbounded:    t.unbounded,
		remaining:    make(map[cellKey]int, len(t.remaining)),
		original:     t.original,
		pool:         make(map[poolKey]int, len(t.pool)),
		poolOriginal: t.poolOriginal,
	}
	for k, v := range t.remaining {
		clone.remaining[k] = v
	}
	for k, v := range t.pool {
		clone.pool[k] = v
	}
	return clone
}

func (t *CapacityTable) shared(specID string) bool {
	return t.kinds[specID] == models.SpecialityKindShared
}

// Offers reports whether the cell was declared.
func (t *CapacityTable) Offers(orgID, specID string, period int) bool {
	if orgID == t.unbounded {
		return true
	}
	_, ok := t.original[cellKey{orgID, specID, period}]
	return ok
}

// Available reports whether at least one place is left.
func (t *CapacityTable) Available(orgID, specID string, period int) bool {
	if orgID == t.unbounded {
		return true
	}
	if !t.Offers(orgID, specID, period) {
		return false
	}
	return t.Remaining(orgID, specID, period) > 0
}

// Remaining returns the places left, read from the shared pool for shared specialities.
func (t *CapacityTable) Remaining(orgID, specID string, period int) int {
	if t.shared(specID) {
		return t.pool[poolKey{orgID, period}]
	}
	return t.remaining[cellKey{orgID, specID, period}]
}

// Original returns the declared places.
func (t *CapacityTable) Original(orgID, specID string, period int) int {
	if t.shared(specID) {
		return t.poolOriginal[poolKey{orgID, period}]
	}
	return t.original[cellKey{orgID, specID, period}]
}

// IsUntouched reports whether the cell still holds its declared places.
func (t *CapacityTable) IsUntouched(orgID, specID string, period int) bool {
	if orgID == t.unbounded || !t.Offers(orgID, specID, period) {
		return false
	}
	return t.Remaining(orgID, specID, period) == t.Original(orgID, specID, period)
}

// Decrease consumes one place.
func (t *CapacityTable) Decrease(orgID, specID string, period int) error {
	if orgID == t.unbounded {
		return nil
	}
	if !t.Available(orgID, specID, period) {
		return fmt.Errorf("decrease %s/%s/P%d: %w", orgID, specID, period, ErrNoCapacity)
	}
	if t.shared(specID) {
		t.pool[poolKey{orgID, period}]--
		return nil
	}
	t.remaining[cellKey{orgID, specID, period}]--
	return nil
}

// Increase releases one place.
func (t *CapacityTable) Increase(orgID, specID string, period int) error {
	if orgID == t.unbounded {
		return nil
	}
	if !t.Offers(orgID, specID, period) || t.Remaining(orgID, specID, period) >= t.Original(orgID, specID, period) {
		return fmt.Errorf("increase %s/%s/P%d: %w", orgID, specID, period, ErrNoCapacity)
	}
	if t.shared(specID) {
		t.pool[poolKey{orgID, period}]++
		return nil
	}
	t.remaining[cellKey{orgID, specID, period}]++
	return nil
}

// AvailablePeriods lists the periods with places left for an organization and speciality.
func (t *CapacityTable) AvailablePeriods(orgID, specID string) []int {
	periods := make([]int, 0, PeriodCount)
	for p := 1; p <= PeriodCount; p++ {
		if t.Available(orgID, specID, p) {
			periods = append(periods, p)
		}
	}
	return periods
}

// TouchedPeriods counts declared periods whose places changed for an organization and speciality.
func (t *CapacityTable) TouchedPeriods(orgID, specID string) int {
	touched := 0
	for p := 1; p <= PeriodCount; p++ {
		if t.Offers(orgID, specID, p) && orgID != t.unbounded && !t.IsUntouched(orgID, specID, p) {
			touched++
		}
	}
	return touched
}

// CellState is a snapshot of one declared cell.
type CellState struct {
	OrganizationID string
	SpecialityID   string
	Period         int
	Remaining      int
	Original       int
}

// Cells lists every declared cell in a stable order.
func (t *CapacityTable) Cells() []CellState {
	cells := make([]CellState, 0, len(t.original))
	for key := range t.original {
		cells = append(cells, CellState{
			OrganizationID: key.OrganizationID,
			SpecialityID:   key.SpecialityID,
			Period:         key.Period,
			Remaining:      t.Remaining(key.OrganizationID, key.SpecialityID, key.Period),
			Original:       t.Original(key.OrganizationID, key.SpecialityID, key.Period),
		})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].OrganizationID != cells[j].OrganizationID {
			return cells[i].OrganizationID < cells[j].OrganizationID
		}
		if cells[i].SpecialityID != cells[j].SpecialityID {
			return cells[i].SpecialityID < cells[j].SpecialityID
		}
		return cells[i].Period < cells[j].Period
	})
	return cells
}
