package affectation

import "fmt"

// Placement codes stored in the choice column.
const (
	CodeImposed = "I"
	CodeError   = "X"
	CodeErasmus = "E"
)

// Placement kinds stored in the type column.
const (
	KindNormal   = "N"
	KindPriority = "S"
	KindErasmus  = "E"
)

const (
	ImposedCost        = 10
	ErrorCost          = 1000
	NonConsecutiveCost = 5
	UntouchedBonus     = 10
	EvenStartPenalty   = 15
)

var rankCosts = map[string]int{"1": 0, "2": 1, "3": 2, "4": 3}

// RankCode converts a preference rank into its placement code.
func RankCode(rank int) (string, error) {
	if rank < 1 || rank > 4 {
		return "", fmt.Errorf("%w: rank %d outside 1-4", ErrInvalidDataset, rank)
	}
	return fmt.Sprintf("%d", rank), nil
}

// codeCost is the preference component of a placement.
func codeCost(code string) int {
	switch code {
	case CodeImposed:
		return ImposedCost
	case CodeError:
		return ErrorCost
	default:
		return rankCosts[code]
	}
}

// placementCost returns the cost of the placement at period without the untouched bonus,
// and whether it breaks the consecutive run.
func placementCost(sol *StudentSolution, period int) (int, bool) {
	current := sol.Get(period)
	if current == nil {
		return 0, false
	}
	cost := codeCost(current.Code)
	broken := !sol.sameOrganization(period-1, current.OrganizationID) && !sol.sameOrganization(period+1, current.OrganizationID)
	if broken {
		cost += NonConsecutiveCost
	}
	return cost, broken
}

// studentCost sums placement costs, minus the bonus for placements in untouched cells.
func studentCost(sol *StudentSolution, capacity *CapacityTable) int {
	total := 0
	for p := 1; p <= PeriodCount; p++ {
		current := sol.Get(p)
		if current == nil {
			continue
		}
		cost, _ := placementCost(sol, p)
		total += cost
		if capacity.IsUntouched(current.OrganizationID, current.SpecialityID, p) {
			total -= UntouchedBonus
		}
	}
	return total
}
