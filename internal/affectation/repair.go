package affectation

import (
	"fmt"

	"github.com/noah-isme/internship-affectation/internal/models"
)

type swapTarget struct {
	period         int
	specialityID   string
	organizationID string
}

// swapErrors tries to move each error placement of the normal phases onto a period where its
// speciality still has room. The student's placement at that period is relocated into the
// error period at another organization, then the speciality is selected again.
func (t *trial) swapErrors() {
	for _, entry := range t.errors {
		sol := t.solutions[entry.StudentID]
		current := sol.Get(entry.Period)
		if current == nil || current.Code != CodeError || current.SpecialityID != entry.SpecialityID {
			continue
		}

		target, ok := t.findSwapTarget(sol, entry)
		if !ok {
			continue
		}
		blocking := sol.Get(target.period)

		if err := t.capacity.Decrease(target.organizationID, target.specialityID, entry.Period); err != nil {
			t.fail(entry.StudentID, entry.SpecialityID, PhaseErrorSwap, err)
			continue
		}
		if err := t.capacity.Increase(blocking.OrganizationID, blocking.SpecialityID, target.period); err != nil {
			_ = t.capacity.Increase(target.organizationID, target.specialityID, entry.Period)
			t.fail(entry.StudentID, entry.SpecialityID, PhaseErrorSwap, err)
			continue
		}
		sol.set(t.newPlacement(entry.StudentID, target.organizationID, target.specialityID, entry.Period, CodeImposed, placementKind(entry.Priority)))
		sol.clear(target.period)

		placements, err := t.bestChoice(entry.StudentID, entry.SpecialityID, entry.Choices, entry.Priority, false)
		if err == nil {
			err = t.commit(placements)
		}
		if err != nil {
			sol.updateScores()
			t.fail(entry.StudentID, entry.SpecialityID, PhaseErrorSwap, fmt.Errorf("reselect after swap: %w", err))
			continue
		}
		if landsOnError(placements) {
			t.fail(entry.StudentID, entry.SpecialityID, PhaseErrorSwap,
				fmt.Errorf("reselect after swap: still on error organization: %w", ErrNoCapacity))
			continue
		}
		t.report.SwappedErrors++
	}
}

func landsOnError(placements []*Placement) bool {
	for _, p := range placements {
		if p.Code == CodeError {
			return true
		}
	}
	return false
}

// findSwapTarget returns the first organization, in reference order, that can host one of the
// student's other specialities at the error period, provided that speciality currently sits on
// a period where the error speciality has room.
func (t *trial) findSwapTarget(sol *StudentSolution, entry errorEntry) (swapTarget, bool) {
	var free [PeriodCount + 1]bool
	for _, orgID := range t.idx.offers[entry.SpecialityID] {
		if t.idx.isErasmusOrganization(orgID) || orgID == t.idx.errorOrgID {
			continue
		}
		for _, p := range t.capacity.AvailablePeriods(orgID, entry.SpecialityID) {
			free[p] = true
		}
	}

	var blocking []*Placement
	for p := 1; p <= PeriodCount; p++ {
		if !free[p] || p == entry.Period {
			continue
		}
		placement := sol.Get(p)
		if placement == nil || placement.Code == CodeErasmus || placement.Code == CodeError {
			continue
		}
		if t.idx.kinds[placement.SpecialityID] == models.SpecialityKindEmergency {
			continue
		}
		blocking = append(blocking, placement)
	}
	if len(blocking) == 0 {
		return swapTarget{}, false
	}

	for _, orgID := range t.idx.orgIDs {
		if t.idx.isErasmusOrganization(orgID) || orgID == t.idx.errorOrgID {
			continue
		}
		for _, placement := range blocking {
			if t.capacity.Available(orgID, placement.SpecialityID, entry.Period) {
				return swapTarget{period: placement.Period, specialityID: placement.SpecialityID, organizationID: orgID}, true
			}
		}
	}
	return swapTarget{}, false
}

// swapEmpty moves normal students into cells nobody has used yet. A student is eligible when
// one of their ranked choices points at the untouched cell, their placement at that period is
// in the same speciality, and vacating it leaves the old cell still in use.
func (t *trial) swapEmpty() {
	for _, orgID := range t.idx.orgIDs {
		if t.idx.isErasmusOrganization(orgID) || orgID == t.idx.errorOrgID {
			continue
		}
		for _, specID := range t.idx.specOrder {
			if t.idx.kinds[specID] != models.SpecialityKindStandard {
				continue
			}
			for p := 1; p <= PeriodCount; p++ {
				if !t.capacity.Offers(orgID, specID, p) || t.capacity.Remaining(orgID, specID, p) <= 0 || !t.capacity.IsUntouched(orgID, specID, p) {
					continue
				}
				t.fillUntouched(orgID, specID, p)
			}
		}
	}
}

func (t *trial) fillUntouched(orgID, specID string, period int) {
	for _, choice := range t.idx.choicesByCell[orgID+"|"+specID] {
		if choice.Priority {
			continue
		}
		sol := t.solutions[choice.StudentID]
		current := sol.Get(period)
		if current == nil || current.SpecialityID != specID || current.Kind != KindNormal {
			continue
		}
		if current.OrganizationID != t.idx.errorOrgID &&
			t.capacity.Remaining(current.OrganizationID, specID, period)+1 >= t.capacity.Original(current.OrganizationID, specID, period) {
			continue
		}
		code, err := RankCode(choice.Rank)
		if err != nil {
			continue
		}
		if err := t.capacity.Increase(current.OrganizationID, specID, period); err != nil {
			t.fail(choice.StudentID, specID, PhaseEmptySwap, err)
			return
		}
		if err := t.capacity.Decrease(orgID, specID, period); err != nil {
			_ = t.capacity.Decrease(current.OrganizationID, specID, period)
			t.fail(choice.StudentID, specID, PhaseEmptySwap, err)
			return
		}
		sol.set(t.newPlacement(choice.StudentID, orgID, specID, period, code, KindNormal))
		sol.updateScores()
		t.report.RedistributedPlacements++
		return
	}
}
