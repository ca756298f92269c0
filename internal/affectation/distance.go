package affectation

import (
	"math"
	"sort"
)

const earthRadiusKm = 6371.0

// haversineKm returns the great-circle distance between two coordinates.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(v float64) float64 { return v * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

type rankedOrganization struct {
	OrganizationID string
	Distance       float64
}

// nearestOrganizations ranks the organizations offering a speciality by distance from the
// student's home. Each period already drawn upon pushes the organization back by the
// configured penalty. The ranking is computed once per student and speciality within a trial.
func (t *trial) nearestOrganizations(studentID, specID string) []rankedOrganization {
	key := studentSpeciality{studentID, specID}
	if ranked, ok := t.distances[key]; ok {
		return ranked
	}
	var ranked []rankedOrganization
	student := t.idx.studentByID[studentID]
	if student != nil && student.HasAddress() {
		for _, orgID := range t.idx.offers[specID] {
			if orgID == t.idx.errorOrgID || orgID == t.idx.editOrgID || t.idx.isErasmusOrganization(orgID) {
				continue
			}
			org := t.idx.organizations[orgID]
			if !org.HasAddress() {
				continue
			}
			distance := haversineKm(*student.Latitude, *student.Longitude, *org.Latitude, *org.Longitude)
			distance += float64(t.capacity.TouchedPeriods(orgID, specID)) * t.opts.FullDistancePenalty
			ranked = append(ranked, rankedOrganization{OrganizationID: orgID, Distance: distance})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Distance < ranked[j].Distance })
	t.distances[key] = ranked
	return ranked
}

// nextNearest returns the closest organization not yet excluded.
func (t *trial) nextNearest(studentID, specID string, exclude map[string]bool) (string, bool) {
	for _, candidate := range t.nearestOrganizations(studentID, specID) {
		if !exclude[candidate.OrganizationID] {
			return candidate.OrganizationID, true
		}
	}
	return "", false
}
