package affectation

import (
	"math"
	"sort"
	"strings"

	"github.com/noah-isme/internship-affectation/internal/models"
)

// Statistics summarises a persisted solution.
type Statistics struct {
	TotalStudents              int            `json:"tot_stud"`
	TotalInternships           int            `json:"total_internships"`
	Erasmus                    int            `json:"erasmus"`
	ErasmusPc                  float64        `json:"erasmus_pc"`
	ErasmusStudents            int            `json:"erasmus_students"`
	ErasmusStudentsPc          float64        `json:"erasmus_students_pc"`
	Socio                      int            `json:"socio"`
	SocioPc                    float64        `json:"socio_pc"`
	SocioStudents              int            `json:"socio_students"`
	SocioStudentsPc            float64        `json:"socio_students_pc"`
	SocioPlacements            int            `json:"socio_placements"`
	SocioPlacementsPc          float64        `json:"socio_placements_pc"`
	First                      int            `json:"first"`
	FirstPc                    float64        `json:"first_pc"`
	Second                     int            `json:"second"`
	SecondPc                   float64        `json:"second_pc"`
	Third                      int            `json:"third"`
	ThirdPc                    float64        `json:"third_pc"`
	Fourth                     int            `json:"fourth"`
	FourthPc                   float64        `json:"fourth_pc"`
	Others                     int            `json:"others"`
	OthersPc                   float64        `json:"others_pc"`
	OthersStudents             int            `json:"others_students"`
	OthersSpecialities         map[string]int `json:"others_specialities"`
	OthersSpecialitiesStudents map[string]int `json:"others_specialities_students"`
	MeanStudentCost            float64        `json:"mean_stud"`
	StdDevStudentCost          float64        `json:"std_dev_stud"`
	MeanNonConsecutive         float64        `json:"mean_noncons"`
	SolutionCost               int            `json:"sol_cost"`
	DistanceMean               float64        `json:"distance_mean"`
	HospitalError              int            `json:"hospital_error"`
	FirstN                     int            `json:"first_n"`
	SecondN                    int            `json:"second_n"`
	ThirdN                     int            `json:"third_n"`
	FourthN                    int            `json:"fourth_n"`
	FirstNPc                   float64        `json:"first_n_pc"`
	SecondNPc                  float64        `json:"second_n_pc"`
	ThirdNPc                   float64        `json:"third_n_pc"`
	FourthNPc                  float64        `json:"fourth_n_pc"`
	OthersNPc                  float64        `json:"others_n_pc"`
	FirstS                     int            `json:"first_s"`
	SecondS                    int            `json:"second_s"`
	ThirdS                     int            `json:"third_s"`
	FourthS                    int            `json:"fourth_s"`
	FirstSPc                   float64        `json:"first_s_pc"`
	SecondSPc                  float64        `json:"second_s_pc"`
	ThirdSPc                   float64        `json:"third_s_pc"`
	FourthSPc                  float64        `json:"fourth_s_pc"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

// ComputeStatistics derives solution statistics from persisted records.
func ComputeStatistics(records []models.AffectationRecord, ds *Dataset, errorOrganizationRef string) Statistics {
	stats := Statistics{
		OthersSpecialities:         make(map[string]int),
		OthersSpecialitiesStudents: make(map[string]int),
	}
	students := make(map[string]*models.InternshipStudent, len(ds.Students))
	for i := range ds.Students {
		students[ds.Students[i].ID] = &ds.Students[i]
	}
	organizations := make(map[string]*models.Organization, len(ds.Organizations))
	for i := range ds.Organizations {
		organizations[ds.Organizations[i].ID] = &ds.Organizations[i]
	}
	for _, spec := range ds.Specialities {
		stats.OthersSpecialities[spec.ID] = 0
		stats.OthersSpecialitiesStudents[spec.ID] = 0
	}

	studentCosts := make(map[string]int)
	var order []string
	othersStudents := make(map[string]bool)
	othersBySpeciality := make(map[string]map[string]bool)
	erasmusStudents := make(map[string]bool)
	var distances []float64
	nonConsecutive := 0

	for _, record := range records {
		if _, seen := studentCosts[record.StudentID]; !seen {
			order = append(order, record.StudentID)
		}
		studentCosts[record.StudentID] += record.Cost
		stats.SolutionCost += record.Cost
		nonConsecutive += record.ConsecutiveMonth

		if rank, ok := rankCosts[record.Choice]; ok {
			counts := [...]*int{&stats.First, &stats.Second, &stats.Third, &stats.Fourth}
			normal := [...]*int{&stats.FirstN, &stats.SecondN, &stats.ThirdN, &stats.FourthN}
			social := [...]*int{&stats.FirstS, &stats.SecondS, &stats.ThirdS, &stats.FourthS}
			*counts[rank]++
			switch record.Type {
			case KindNormal:
				*normal[rank]++
			case KindPriority:
				*social[rank]++
			}
		}
		switch record.Choice {
		case CodeErasmus:
			stats.Erasmus++
			erasmusStudents[record.StudentID] = true
		case CodeImposed:
			stats.Others++
			othersStudents[record.StudentID] = true
			stats.OthersSpecialities[record.SpecialityID]++
			if othersBySpeciality[record.SpecialityID] == nil {
				othersBySpeciality[record.SpecialityID] = make(map[string]bool)
			}
			othersBySpeciality[record.SpecialityID][record.StudentID] = true
			student, org := students[record.StudentID], organizations[record.OrganizationID]
			if student != nil && org != nil && student.HasAddress() && org.HasAddress() {
				distances = append(distances, haversineKm(*student.Latitude, *student.Longitude, *org.Latitude, *org.Longitude))
			}
		}
		if record.Type == KindPriority {
			stats.SocioPlacements++
		}
		if org := organizations[record.OrganizationID]; org != nil && strings.TrimSpace(org.Reference) == errorOrganizationRef {
			stats.HospitalError++
		}
	}

	stats.TotalStudents = len(order)
	stats.TotalInternships = stats.TotalStudents * MandatoryPeriodCount
	stats.ErasmusPc = percent(stats.Erasmus, stats.TotalInternships)
	stats.ErasmusStudents = len(erasmusStudents)
	stats.ErasmusStudentsPc = percent(stats.ErasmusStudents, stats.TotalStudents)
	stats.Socio, stats.SocioStudents = prioritySocioCounts(ds)
	stats.SocioPc = percent(stats.Socio, stats.TotalInternships)
	stats.SocioPlacementsPc = percent(stats.SocioPlacements, stats.TotalInternships)
	stats.SocioStudentsPc = percent(stats.SocioStudents, stats.TotalStudents)
	stats.FirstPc = percent(stats.First, stats.TotalInternships)
	stats.SecondPc = percent(stats.Second, stats.TotalInternships)
	stats.ThirdPc = percent(stats.Third, stats.TotalInternships)
	stats.FourthPc = percent(stats.Fourth, stats.TotalInternships)
	stats.OthersPc = percent(stats.Others, stats.TotalInternships)
	stats.OthersStudents = len(othersStudents)
	for specID, set := range othersBySpeciality {
		stats.OthersSpecialitiesStudents[specID] = len(set)
	}

	costs := make([]float64, 0, len(order))
	for _, id := range order {
		costs = append(costs, float64(studentCosts[id]))
	}
	stats.MeanStudentCost = round2(mean(costs))
	stats.StdDevStudentCost = round2(sampleStdDev(costs))
	if stats.TotalStudents > 0 {
		stats.MeanNonConsecutive = round2(float64(nonConsecutive) / float64(stats.TotalStudents))
	}
	stats.DistanceMean = round2(mean(distances))

	totalN := stats.FirstN + stats.SecondN + stats.ThirdN + stats.FourthN + stats.Others
	if totalN == 0 {
		totalN = 1
	}
	stats.FirstNPc = percent(stats.FirstN, totalN)
	stats.SecondNPc = percent(stats.SecondN, totalN)
	stats.ThirdNPc = percent(stats.ThirdN, totalN)
	stats.FourthNPc = percent(stats.FourthN, totalN)
	stats.OthersNPc = percent(stats.Others, totalN)

	totalS := stats.FirstS + stats.SecondS + stats.ThirdS + stats.FourthS
	if totalS == 0 {
		totalS = 1
	}
	stats.FirstSPc = percent(stats.FirstS, totalS)
	stats.SecondSPc = percent(stats.SecondS, totalS)
	stats.ThirdSPc = percent(stats.ThirdS, totalS)
	stats.FourthSPc = percent(stats.FourthS, totalS)
	return stats
}

// prioritySocioCounts returns the students holding priority choices and, among them, those
// with a priority choice on a mandatory speciality. A choice is priority when it or its
// student is flagged.
func prioritySocioCounts(ds *Dataset) (int, int) {
	mandatory := make(map[string]bool, len(ds.Specialities))
	for _, spec := range ds.Specialities {
		mandatory[spec.ID] = spec.Mandatory
	}
	flagged := make(map[string]bool)
	for _, student := range ds.Students {
		if student.Priority {
			flagged[student.ID] = true
		}
	}
	all := make(map[string]bool)
	withMandatory := make(map[string]bool)
	for _, choice := range ds.Choices {
		if !choice.Priority && !flagged[choice.StudentID] {
			continue
		}
		all[choice.StudentID] = true
		if mandatory[choice.SpecialityID] {
			withMandatory[choice.StudentID] = true
		}
	}
	return len(all), len(withMandatory)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// OccupancyCell reports places before and after the solution for one period.
type OccupancyCell struct {
	Period  string  `json:"period"`
	Before  int     `json:"before"`
	After   int     `json:"after"`
	Percent float64 `json:"pc"`
}

// OccupancyRow groups the periods of one organization and speciality acronym.
type OccupancyRow struct {
	OrganizationID        string          `json:"organization_id"`
	OrganizationReference string          `json:"organization_reference"`
	OrganizationName      string          `json:"organization_name"`
	SpecialityAcronym     string          `json:"speciality_acronym"`
	Periods               []OccupancyCell `json:"periods"`
}

// Occupancy sort keys.
const (
	SortOccupancyByReference  = "ref"
	SortOccupancyBySpeciality = "speciality"
)

// ComputeOccupancy compares declared places with the persisted records.
// Records on undeclared cells, such as the error organization, are ignored.
func ComputeOccupancy(records []models.AffectationRecord, ds *Dataset, sortBy string) []OccupancyRow {
	organizations := make(map[string]*models.Organization, len(ds.Organizations))
	for i := range ds.Organizations {
		organizations[ds.Organizations[i].ID] = &ds.Organizations[i]
	}
	acronyms := make(map[string]string, len(ds.Specialities))
	for _, spec := range ds.Specialities {
		acronyms[spec.ID] = strings.TrimSpace(spec.Acronym)
	}
	periodNames := make(map[string]string, len(ds.Periods))
	periodNumbers := make(map[string]int, len(ds.Periods))
	for _, period := range ds.Periods {
		periodNames[period.ID] = period.Name
		number, _ := models.ParsePeriodNumber(period.Name)
		periodNumbers[period.Name] = number
	}

	type rowKey struct{ org, acronym string }
	rows := make(map[rowKey]map[string]*OccupancyCell)
	for _, place := range ds.Places {
		key := rowKey{place.OrganizationID, acronyms[place.SpecialityID]}
		if rows[key] == nil {
			rows[key] = make(map[string]*OccupancyCell)
		}
		name := periodNames[place.PeriodID]
		rows[key][name] = &OccupancyCell{Period: name, Before: place.NumberPlaces, After: place.NumberPlaces}
	}
	for _, record := range records {
		cells := rows[rowKey{record.OrganizationID, acronyms[record.SpecialityID]}]
		if cells == nil {
			continue
		}
		if cell := cells[periodNames[record.PeriodID]]; cell != nil {
			cell.After--
		}
	}

	result := make([]OccupancyRow, 0, len(rows))
	for key, cells := range rows {
		row := OccupancyRow{OrganizationID: key.org, SpecialityAcronym: key.acronym}
		if org := organizations[key.org]; org != nil {
			row.OrganizationReference = org.Reference
			row.OrganizationName = org.Name
		}
		for _, cell := range cells {
			if cell.Before > 0 {
				cell.Percent = round2(float64(cell.After) / float64(cell.Before) * 100)
			}
			row.Periods = append(row.Periods, *cell)
		}
		sort.Slice(row.Periods, func(i, j int) bool {
			return periodNumbers[row.Periods[i].Period] < periodNumbers[row.Periods[j].Period]
		})
		result = append(result, row)
	}
	SortOccupancy(result, sortBy)
	return result
}

// SortOccupancy orders rows by organization reference or speciality acronym.
func SortOccupancy(rows []OccupancyRow, sortBy string) {
	byReference := func(i, j int) bool {
		ri := models.Organization{Reference: rows[i].OrganizationReference}.ReferenceNumber()
		rj := models.Organization{Reference: rows[j].OrganizationReference}.ReferenceNumber()
		if ri != rj {
			return ri < rj
		}
		return rows[i].SpecialityAcronym < rows[j].SpecialityAcronym
	}
	if sortBy == SortOccupancyBySpeciality {
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].SpecialityAcronym != rows[j].SpecialityAcronym {
				return rows[i].SpecialityAcronym < rows[j].SpecialityAcronym
			}
			return byReference(i, j)
		})
		return
	}
	sort.SliceStable(rows, byReference)
}

// StudentSummary aggregates the persisted placements of one student.
type StudentSummary struct {
	StudentID  string                     `json:"student_id"`
	FirstName  string                     `json:"first_name"`
	LastName   string                     `json:"last_name"`
	Cost       int                        `json:"cost"`
	Placements []models.AffectationRecord `json:"placements"`
}

// Student summary sort keys.
const (
	SortStudentsByName  = "name"
	SortStudentsByScore = "score"
)

// SummarizeStudents groups records per student, sorted by last name or by descending cost.
func SummarizeStudents(records []models.AffectationRecord, students []models.InternshipStudent, sortBy string) []StudentSummary {
	byID := make(map[string]models.InternshipStudent, len(students))
	for _, s := range students {
		byID[s.ID] = s
	}
	summaries := make(map[string]*StudentSummary)
	var order []string
	for _, record := range records {
		summary, ok := summaries[record.StudentID]
		if !ok {
			student := byID[record.StudentID]
			summary = &StudentSummary{StudentID: record.StudentID, FirstName: student.FirstName, LastName: student.LastName}
			summaries[record.StudentID] = summary
			order = append(order, record.StudentID)
		}
		summary.Cost += record.Cost
		summary.Placements = append(summary.Placements, record)
	}

	result := make([]StudentSummary, 0, len(order))
	for _, id := range order {
		result = append(result, *summaries[id])
	}
	if sortBy == SortStudentsByScore {
		sort.SliceStable(result, func(i, j int) bool {
			if result[i].Cost != result[j].Cost {
				return result[i].Cost > result[j].Cost
			}
			return result[i].StudentID < result[j].StudentID
		})
		return result
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		if result[i].FirstName != result[j].FirstName {
			return result[i].FirstName < result[j].FirstName
		}
		return result[i].StudentID < result[j].StudentID
	})
	return result
}
