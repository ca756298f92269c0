package affectation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTrial(t *testing.T, ds *Dataset, seed int64) *trial {
	t.Helper()
	idx, err := buildIndex(ds, testOptions())
	require.NoError(t, err)
	return newTrial(idx, testOptions(), seed, zap.NewNop())
}

func TestEmergencyPriorityStartsOnOddPeriod(t *testing.T) {
	ds := newDatasetBuilder().
		org("o1", "1", 50.0, 4.0).
		speciality("ur", "UR").
		places("o1", "ur", 1, 2, 3, 4, 5).
		student("s1", true, 50.0, 4.0).
		choice("s1", "o1", "ur", 1).
		build()
	tr := newTestTrial(t, ds, 7)

	tr.fillEmergency(true)

	sol := tr.solutions["s1"]
	require.NotNil(t, sol.Get(3))
	require.NotNil(t, sol.Get(4))
	for _, period := range []int{3, 4} {
		p := sol.Get(period)
		assert.Equal(t, "o1", p.OrganizationID)
		assert.Equal(t, "ur", p.SpecialityID)
		assert.Equal(t, "1", p.Code)
		assert.Equal(t, KindPriority, p.Kind)
		assert.Equal(t, 0, tr.capacity.Remaining("o1", "ur", period))
	}
	assert.Nil(t, sol.Get(2))
	assert.Equal(t, 1, tr.capacity.Remaining("o1", "ur", 2))
	assert.Equal(t, 1, tr.capacity.Remaining("o1", "ur", 5))
	assert.Empty(t, tr.report.Failures)
}

func TestNormalStudentFallsBackToErrorOrganization(t *testing.T) {
	b := newDatasetBuilder().speciality("x", "X").student("s1", false, 50.0, 4.0)
	for i, org := range []string{"o1", "o2", "o3", "o4", "o5"} {
		b.org(org, string(rune('1'+i)), 50.0+float64(i)/100, 4.0).places(org, "x", 0, mandatoryPeriods()...)
	}
	for rank, org := range []string{"o1", "o2", "o3", "o4"} {
		b.choice("s1", org, "x", rank+1)
	}

	result, err := NewEngine(testOptions(), zap.NewNop()).Run(context.Background(), b.build(), nil)
	require.NoError(t, err)

	placements := result.Solution.Placements()
	require.Len(t, placements, 1)
	assert.Equal(t, testErrorOrg, placements[0].OrganizationID)
	assert.Equal(t, CodeError, placements[0].Code)
	assert.Equal(t, KindNormal, placements[0].Kind)
	assert.Equal(t, ErrorCost+NonConsecutiveCost, placements[0].Cost)
	assert.True(t, placements[0].Consecutive)
	assert.Equal(t, ErrorCost+NonConsecutiveCost, result.BestCost)
	assert.Equal(t, 1, result.Report.ErrorPlacements)
}

func fallbackDataset() *Dataset {
	return newDatasetBuilder().
		org("o1", "1", 51.0, 5.0).
		org("near", "2", 50.01, 4.01).
		org("far", "3", 51.5, 5.5).
		speciality("x", "X").
		places("o1", "x", 0, mandatoryPeriods()...).
		places("near", "x", 1, 1, 2).
		places("far", "x", 1, mandatoryPeriods()...).
		student("s1", false, 50.0, 4.0).
		student("s2", true, 50.0, 4.0).
		choice("s1", "o1", "x", 1).
		choice("s2", "o1", "x", 1).
		build()
}

func TestBestChoiceImposesNearestOrganization(t *testing.T) {
	tr := newTestTrial(t, fallbackDataset(), 3)

	placements, err := tr.bestChoice("s1", "x", tr.idx.choices[studentSpeciality{"s1", "x"}], false, false)
	require.NoError(t, err)
	require.Len(t, placements, 1)
	assert.Equal(t, "near", placements[0].OrganizationID)
	assert.Equal(t, CodeImposed, placements[0].Code)
	assert.Contains(t, []int{1, 2}, placements[0].Period)
}

func TestBestChoicePenalisesTouchedOrganizations(t *testing.T) {
	tr := newTestTrial(t, fallbackDataset(), 3)
	require.NoError(t, tr.capacity.Decrease("near", "x", 2))

	placements, err := tr.bestChoice("s1", "x", tr.idx.choices[studentSpeciality{"s1", "x"}], false, false)
	require.NoError(t, err)
	require.Len(t, placements, 1)
	assert.Equal(t, "far", placements[0].OrganizationID)
	assert.Equal(t, CodeImposed, placements[0].Code)
}

func TestBestChoicePriorityGoesToErrorOrganization(t *testing.T) {
	tr := newTestTrial(t, fallbackDataset(), 3)

	placements, err := tr.bestChoice("s2", "x", tr.idx.choices[studentSpeciality{"s2", "x"}], true, false)
	require.NoError(t, err)
	require.Len(t, placements, 1)
	assert.Equal(t, testErrorOrg, placements[0].OrganizationID)
	assert.Equal(t, CodeError, placements[0].Code)
	assert.Equal(t, KindPriority, placements[0].Kind)
}

func TestBestChoiceWithoutOpenPeriod(t *testing.T) {
	b := newDatasetBuilder().
		org("exchange", "600", 48.0, 2.0).
		org("o1", "1", 50.0, 4.0).
		speciality("e1", "E1").
		speciality("b", "B").
		places("exchange", "e1", 1, mandatoryPeriods()...).
		places("o1", "b", 1, mandatoryPeriods()...).
		student("s1", false, 50.0, 4.0).
		choice("s1", "o1", "b", 1)
	for _, p := range mandatoryPeriods() {
		b.enrollment("s1", "exchange", "e1", p)
	}

	result, err := NewEngine(testOptions(), zap.NewNop()).Run(context.Background(), b.build(), nil)
	require.NoError(t, err)

	require.Len(t, result.Report.Failures, 1)
	failure := result.Report.Failures[0]
	assert.Equal(t, "s1", failure.StudentID)
	assert.Equal(t, "b", failure.SpecialityID)
	assert.Equal(t, PhaseOthersNormal, failure.Phase)
	assert.ErrorIs(t, failure.Err, ErrNoOpenPeriod)
	assert.Equal(t, MandatoryPeriodCount, result.Solution.MandatoryPlacements())
}

func TestPickCandidatePrefersRoomierCells(t *testing.T) {
	ds := newDatasetBuilder().
		org("o1", "1", 50.0, 4.0).
		org("o2", "2", 50.0, 4.0).
		speciality("x", "X").
		places("o1", "x", 1, 1).
		places("o2", "x", 3, 1).
		student("s1", false, 50.0, 4.0).
		build()
	tr := newTestTrial(t, ds, 11)

	low := candidate{placements: []*Placement{tr.newPlacement("s1", "o1", "x", 1, "1", KindNormal)}}
	high := candidate{placements: []*Placement{tr.newPlacement("s1", "o2", "x", 1, "1", KindNormal)}}
	for i := 0; i < 10; i++ {
		picked := tr.pickCandidate([]candidate{low, high})
		assert.Equal(t, "o2", picked[0].OrganizationID)
	}
}

func TestHaversineKm(t *testing.T) {
	assert.InDelta(t, 27.3, haversineKm(50.8503, 4.3517, 50.6681, 4.6118), 0.1)
	assert.Zero(t, haversineKm(50, 4, 50, 4))
}
