package service

import "github.com/CodeYourFuture/trainee-tracker/internal/models"

// Score thresholds separating the coarse trainee statuses. These are
// heuristic tuning knobs, not derived constants.
const (
	onTrackThreshold = 5000
	behindThreshold  = 2500
)

// ProgressService derives progress metrics from matched module trees. It is
// pure computation with no I/O.
type ProgressService struct{}

// NewProgressService constructs the scorer.
func NewProgressService() *ProgressService {
	return &ProgressService{}
}

// Score computes the weighted completion score in [0, 10000] across every
// submission state of every sprint and module. The weighting is deliberately
// ad hoc and expected to be tuned.
func (s *ProgressService) Score(trainee models.TraineeWithSubmissions) int {
	numerator := 0
	denominator := 0
	for _, module := range trainee.Modules {
		for _, sprint := range module.Sprints {
			for _, state := range sprint.Submissions {
				switch state.Status {
				case models.SubmissionSubmitted:
					switch state.Submission.Kind {
					case models.SubmissionAttendance:
						denominator += 10
						switch state.Submission.Attendance.Outcome {
						case models.AttendanceOnTime:
							numerator += 10
						case models.AttendanceLate:
							numerator += 8
						case models.AttendanceWrongDay:
							numerator += 3
						case models.AttendanceAbsent:
						}
					case models.SubmissionPullRequest:
						max := 10
						if state.Submission.Optionality == models.OptionalityStretch {
							max = 12
						}
						denominator += max
						switch state.Submission.PullRequest.State {
						case models.PrStateComplete:
							numerator += max
						case models.PrStateNeedsReview, models.PrStateReviewed:
							numerator += 6
						case models.PrStateUnknown:
							numerator += 2
						}
					}
				case models.SubmissionMissingButExpected:
					if state.Assignment.Kind == models.AssignmentAttendance {
						denominator += 20
					} else {
						denominator += 10
					}
				case models.SubmissionMissingStretch:
					denominator += 2
				case models.SubmissionMissingButNotExpected:
				}
			}
		}
	}
	if denominator == 0 {
		return 0
	}
	return 10000 * numerator / denominator
}

// Status classifies the trainee from their score.
func (s *ProgressService) Status(trainee models.TraineeWithSubmissions) models.TraineeStatus {
	score := s.Score(trainee)
	if score >= onTrackThreshold {
		return models.StatusOnTrack
	}
	if score >= behindThreshold {
		return models.StatusBehind
	}
	return models.StatusAtRisk
}

// AttendanceFraction counts OnTime and Late attendances over all reconciled
// attendance submissions. Absent and WrongDay count toward the denominator
// only. This is a distinct weighting from Score.
func (s *ProgressService) AttendanceFraction(trainee models.TraineeWithSubmissions) models.Fraction {
	fraction := models.Fraction{}
	for _, module := range trainee.Modules {
		for _, sprint := range module.Sprints {
			for _, state := range sprint.Submissions {
				if !state.IsSubmitted() || state.Submission.Kind != models.SubmissionAttendance {
					continue
				}
				fraction.Denominator++
				if state.Submission.Attendance.Present() {
					fraction.Numerator++
				}
			}
		}
	}
	return fraction
}
