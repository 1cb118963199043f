package models

import "sort"

// Trainee identifies one course participant.
type Trainee struct {
	GithubLogin string `json:"github_login" db:"github_login"`
	Name        string `json:"name" db:"name"`
	Email       string `json:"email" db:"email"`
	Region      Region `json:"region" db:"region"`
}

// TraineeStatus is the coarse progress classification.
type TraineeStatus string

const (
	StatusOnTrack TraineeStatus = "on_track"
	StatusBehind  TraineeStatus = "behind"
	StatusAtRisk  TraineeStatus = "at_risk"
)

// Fraction is a plain numerator/denominator pair, kept unsimplified so the
// caller can render both parts.
type Fraction struct {
	Numerator   int `json:"numerator"`
	Denominator int `json:"denominator"`
}

// TraineeWithSubmissions pairs a trainee with their matched module results,
// in course module order.
type TraineeWithSubmissions struct {
	Trainee Trainee                 `json:"trainee"`
	Modules []ModuleWithSubmissions `json:"modules"`
}

// TraineeScore is the scored progress view of one trainee.
type TraineeScore struct {
	Trainee    Trainee       `json:"trainee"`
	Score      int           `json:"score"`
	Status     TraineeStatus `json:"status"`
	Attendance Fraction      `json:"attendance"`
}

// Batch is a cohort of trainees with their matched submissions.
type Batch struct {
	Name     string                   `json:"name"`
	Trainees []TraineeWithSubmissions `json:"trainees"`
}

// UnknownPrs aggregates every unmatched open pull request across the batch.
func (b Batch) UnknownPrs() []Pr {
	var prs []Pr
	for _, trainee := range b.Trainees {
		for _, module := range trainee.Modules {
			prs = append(prs, module.UnknownPrs...)
		}
	}
	return prs
}

// AllRegions returns the batch's regions ordered by ascending trainee count.
func (b Batch) AllRegions() []Region {
	counts := make(map[Region]int)
	for _, trainee := range b.Trainees {
		counts[trainee.Trainee.Region]++
	}
	regions := make([]Region, 0, len(counts))
	for region := range counts {
		regions = append(regions, region)
	}
	sort.Slice(regions, func(i, j int) bool {
		if counts[regions[i]] != counts[regions[j]] {
			return counts[regions[i]] < counts[regions[j]]
		}
		return regions[i] < regions[j]
	})
	return regions
}
