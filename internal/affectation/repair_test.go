package affectation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapErrorsRelocatesBlockingSpeciality(t *testing.T) {
	ds := newDatasetBuilder().
		org("o1", "1", 50.0, 4.0).
		org("o2", "2", 50.0, 4.0).
		org("o3", "3", 50.0, 4.0).
		speciality("a", "A").
		speciality("b", "B").
		places("o1", "a", 1, 1).
		places("o3", "b", 1, 1).
		places("o2", "b", 1, 2).
		student("s1", false, 50.0, 4.0).
		choice("s1", "o1", "a", 1).
		choice("s1", "o3", "b", 1).
		build()
	tr := newTestTrial(t, ds, 5)

	require.NoError(t, tr.commit([]*Placement{tr.newPlacement("s1", "o3", "b", 1, "1", KindNormal)}))
	require.NoError(t, tr.commit([]*Placement{tr.newPlacement("s1", testErrorOrg, "a", 2, CodeError, KindNormal)}))
	tr.errors = append(tr.errors, errorEntry{
		StudentID:    "s1",
		SpecialityID: "a",
		Period:       2,
		Choices:      tr.idx.choices[studentSpeciality{"s1", "a"}],
	})

	tr.swapErrors()

	sol := tr.solutions["s1"]
	require.NotNil(t, sol.Get(1))
	require.NotNil(t, sol.Get(2))
	assert.Equal(t, "o1", sol.Get(1).OrganizationID)
	assert.Equal(t, "a", sol.Get(1).SpecialityID)
	assert.Equal(t, "1", sol.Get(1).Code)
	assert.Equal(t, "o2", sol.Get(2).OrganizationID)
	assert.Equal(t, "b", sol.Get(2).SpecialityID)
	assert.Equal(t, CodeImposed, sol.Get(2).Code)
	assert.Equal(t, 1, tr.report.SwappedErrors)
	assert.Equal(t, 1, tr.capacity.Remaining("o3", "b", 1))
	assert.Equal(t, 0, tr.capacity.Remaining("o2", "b", 2))
	assert.Equal(t, 0, tr.capacity.Remaining("o1", "a", 1))
}

func TestSwapErrorsLeavesErrorWithoutTarget(t *testing.T) {
	ds := newDatasetBuilder().
		org("o1", "1", 50.0, 4.0).
		speciality("a", "A").
		places("o1", "a", 0, 1).
		student("s1", false, 50.0, 4.0).
		choice("s1", "o1", "a", 1).
		build()
	tr := newTestTrial(t, ds, 5)
	require.NoError(t, tr.commit([]*Placement{tr.newPlacement("s1", testErrorOrg, "a", 2, CodeError, KindNormal)}))
	tr.errors = append(tr.errors, errorEntry{StudentID: "s1", SpecialityID: "a", Period: 2})

	tr.swapErrors()

	assert.Equal(t, CodeError, tr.solutions["s1"].Get(2).Code)
	assert.Zero(t, tr.report.SwappedErrors)
	assert.Empty(t, tr.report.Failures)
}

func TestSwapErrorsCountsOnlyResolvedErrors(t *testing.T) {
	ds := newDatasetBuilder().
		org("o1", "1", 50.0, 4.0).
		org("o2", "2", 50.0, 4.0).
		org("o9", "9", 50.0, 4.0).
		speciality("a", "A").
		speciality("b", "B").
		places("o1", "b", 1, 1).
		places("o2", "b", 1, 2).
		places("o9", "a", 1, 1).
		student("s1", true, 50.0, 4.0).
		choice("s1", "o1", "b", 1).
		choice("s1", "o1", "a", 1).
		build()
	tr := newTestTrial(t, ds, 5)

	require.NoError(t, tr.commit([]*Placement{tr.newPlacement("s1", "o1", "b", 1, "1", KindPriority)}))
	require.NoError(t, tr.commit([]*Placement{tr.newPlacement("s1", testErrorOrg, "a", 2, CodeError, KindPriority)}))
	tr.errors = append(tr.errors, errorEntry{
		StudentID:    "s1",
		SpecialityID: "a",
		Period:       2,
		Choices:      tr.idx.choices[studentSpeciality{"s1", "a"}],
		Priority:     true,
	})

	tr.swapErrors()

	var stillOnError bool
	for _, p := range tr.solutions["s1"].placements() {
		if p.SpecialityID == "a" && p.Code == CodeError {
			stillOnError = true
		}
	}
	assert.True(t, stillOnError)
	assert.Zero(t, tr.report.SwappedErrors)
	require.Len(t, tr.report.Failures, 1)
	assert.Equal(t, PhaseErrorSwap, tr.report.Failures[0].Phase)
	assert.Equal(t, "a", tr.report.Failures[0].SpecialityID)
	assert.ErrorIs(t, tr.report.Failures[0].Err, ErrNoCapacity)
}

func swapEmptyDataset(busyPlaces int) *Dataset {
	return newDatasetBuilder().
		org("o1", "1", 50.0, 4.0).
		org("o2", "2", 50.0, 4.0).
		speciality("a", "A").
		places("o1", "a", busyPlaces, 1).
		places("o2", "a", 1, 1).
		student("s1", false, 50.0, 4.0).
		student("s2", false, 50.0, 4.0).
		choice("s1", "o1", "a", 1).
		choice("s1", "o2", "a", 2).
		choice("s2", "o1", "a", 1).
		build()
}

func TestSwapEmptyMovesStudentIntoUntouchedCell(t *testing.T) {
	tr := newTestTrial(t, swapEmptyDataset(2), 9)
	require.NoError(t, tr.commit([]*Placement{tr.newPlacement("s1", "o1", "a", 1, "1", KindNormal)}))
	require.NoError(t, tr.commit([]*Placement{tr.newPlacement("s2", "o1", "a", 1, "1", KindNormal)}))

	tr.swapEmpty()

	moved := tr.solutions["s1"].Get(1)
	assert.Equal(t, "o2", moved.OrganizationID)
	assert.Equal(t, "2", moved.Code)
	assert.Equal(t, "o1", tr.solutions["s2"].Get(1).OrganizationID)
	assert.Equal(t, 1, tr.capacity.Remaining("o1", "a", 1))
	assert.Equal(t, 0, tr.capacity.Remaining("o2", "a", 1))
	assert.Equal(t, 1, tr.report.RedistributedPlacements)
}

func TestSwapEmptyKeepsLastOccupant(t *testing.T) {
	ds := swapEmptyDataset(1)
	ds.Choices = ds.Choices[:2]
	ds.Students = ds.Students[:1]
	tr := newTestTrial(t, ds, 9)
	require.NoError(t, tr.commit([]*Placement{tr.newPlacement("s1", "o1", "a", 1, "1", KindNormal)}))

	tr.swapEmpty()

	assert.Equal(t, "o1", tr.solutions["s1"].Get(1).OrganizationID)
	assert.Equal(t, 1, tr.capacity.Remaining("o2", "a", 1))
	assert.Zero(t, tr.report.RedistributedPlacements)
}
