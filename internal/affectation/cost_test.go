package affectation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/internship-affectation/internal/models"
)

func TestStudentCostComponents(t *testing.T) {
	table, err := NewCapacityTable(nil, map[string]int{}, map[string]models.SpecialityKind{}, testErrorOrg)
	require.NoError(t, err)

	sol := newStudentSolution("s1")
	sol.set(&Placement{StudentID: "s1", OrganizationID: "a", SpecialityID: "x", Period: 1, Code: "1"})
	sol.set(&Placement{StudentID: "s1", OrganizationID: "a", SpecialityID: "x", Period: 2, Code: "2"})
	sol.set(&Placement{StudentID: "s1", OrganizationID: "b", SpecialityID: "y", Period: 3, Code: CodeImposed})
	sol.set(&Placement{StudentID: "s1", OrganizationID: testErrorOrg, SpecialityID: "z", Period: 5, Code: CodeError})

	// P1 and P2 share an organization, P3 and P5 are isolated.
	assert.Equal(t, 0+1+(ImposedCost+NonConsecutiveCost)+(ErrorCost+NonConsecutiveCost), studentCost(sol, table))

	sol.updateScores()
	assert.Equal(t, 0, sol.Get(1).Cost)
	assert.False(t, sol.Get(1).Consecutive)
	assert.Equal(t, 15, sol.Get(3).Cost)
	assert.True(t, sol.Get(3).Consecutive)
	assert.Equal(t, 1005, sol.Get(5).Cost)
}

func TestStudentCostUntouchedBonus(t *testing.T) {
	table, err := NewCapacityTable(
		[]models.PeriodPlaces{{ID: "1", OrganizationID: "a", SpecialityID: "x", PeriodID: periodID(1), NumberPlaces: 2}},
		map[string]int{periodID(1): 1},
		map[string]models.SpecialityKind{"x": models.SpecialityKindStandard},
		testErrorOrg,
	)
	require.NoError(t, err)

	sol := newStudentSolution("s1")
	sol.set(&Placement{StudentID: "s1", OrganizationID: "a", SpecialityID: "x", Period: 1, Code: "1"})
	assert.Equal(t, NonConsecutiveCost-UntouchedBonus, studentCost(sol, table))

	require.NoError(t, table.Decrease("a", "x", 1))
	assert.Equal(t, NonConsecutiveCost, studentCost(sol, table))
}

func TestRankCode(t *testing.T) {
	code, err := RankCode(3)
	require.NoError(t, err)
	assert.Equal(t, "3", code)
	assert.Equal(t, 2, codeCost(code))

	_, err = RankCode(5)
	assert.ErrorIs(t, err, ErrInvalidDataset)
}

func TestOpenPairsKeepPeriodTypes(t *testing.T) {
	sol := newStudentSolution("s1")
	sol.set(&Placement{Period: 3, OrganizationID: "a"})

	pairs := sol.openPairs(true)
	assert.Equal(t, [][2]int{{1, 2}, {4, 5}, {5, 6}, {6, 7}, {7, 8}}, pairs)
	for _, pair := range sol.openPairs(false) {
		assert.False(t, IsMandatoryPeriod(pair[0]))
		assert.False(t, IsMandatoryPeriod(pair[1]))
	}
}
