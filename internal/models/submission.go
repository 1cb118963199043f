package models

// SubmissionStatus discriminates the states a slot can be in after matching.
type SubmissionStatus string

const (
	// SubmissionSubmitted means work was matched to the slot.
	SubmissionSubmitted SubmissionStatus = "submitted"
	// SubmissionMissingButExpected means the deadline passed on a mandatory
	// assignment with nothing matched.
	SubmissionMissingButExpected SubmissionStatus = "missing_but_expected"
	// SubmissionMissingStretch means the deadline passed on a stretch
	// assignment with nothing matched.
	SubmissionMissingStretch SubmissionStatus = "missing_stretch"
	// SubmissionMissingButNotExpected means the deadline has not yet passed.
	SubmissionMissingButNotExpected SubmissionStatus = "missing_but_not_expected"
)

// AttendanceOutcome classifies a reconciled class attendance.
type AttendanceOutcome string

const (
	AttendanceAbsent   AttendanceOutcome = "absent"
	AttendanceOnTime   AttendanceOutcome = "on_time"
	AttendanceLate     AttendanceOutcome = "late"
	AttendanceWrongDay AttendanceOutcome = "wrong_day"
)

// AttendanceSubmission is a reconciled attendance record. RegisterURL points
// back at the register for traceability.
type AttendanceSubmission struct {
	Outcome     AttendanceOutcome `json:"outcome"`
	RegisterURL string            `json:"register_url"`
}

// Present reports whether the trainee turned up on the right day.
func (a AttendanceSubmission) Present() bool {
	return a.Outcome == AttendanceOnTime || a.Outcome == AttendanceLate
}

// SubmissionKind discriminates submission variants.
type SubmissionKind string

const (
	SubmissionAttendance  SubmissionKind = "attendance"
	SubmissionPullRequest SubmissionKind = "pull_request"
)

// Submission is matched work: either a reconciled attendance or a pull
// request with the optionality of the assignment it filled.
type Submission struct {
	Kind        SubmissionKind        `json:"kind"`
	Attendance  *AttendanceSubmission `json:"attendance,omitempty"`
	PullRequest *Pr                   `json:"pull_request,omitempty"`
	Optionality Optionality           `json:"optionality,omitempty"`
}

// SubmissionState is the atomic unit of progress accounting. Exactly one
// exists per (sprint, assignment) slot after matching.
type SubmissionState struct {
	Status     SubmissionStatus `json:"status"`
	Assignment Assignment       `json:"assignment"`
	Submission *Submission      `json:"submission,omitempty"`
}

// IsSubmitted reports whether the slot has been filled.
func (s SubmissionState) IsSubmitted() bool {
	return s.Status == SubmissionSubmitted
}

// SubmittedAttendance builds a filled attendance state for a slot.
func SubmittedAttendance(assignment Assignment, attendance AttendanceSubmission) SubmissionState {
	return SubmissionState{
		Status:     SubmissionSubmitted,
		Assignment: assignment,
		Submission: &Submission{Kind: SubmissionAttendance, Attendance: &attendance},
	}
}

// SubmittedPullRequest builds a filled pull request state for a slot.
func SubmittedPullRequest(assignment Assignment, pr Pr, optionality Optionality) SubmissionState {
	return SubmissionState{
		Status:     SubmissionSubmitted,
		Assignment: assignment,
		Submission: &Submission{Kind: SubmissionPullRequest, PullRequest: &pr, Optionality: optionality},
	}
}

// SprintWithSubmissions holds the slot-indexed submission states for one
// sprint, aligned with the sprint's assignment order.
type SprintWithSubmissions struct {
	Submissions []SubmissionState `json:"submissions"`
}

// ModuleWithSubmissions is the matcher's result for one trainee and module:
// slot states per sprint plus the open pull requests that matched nothing.
type ModuleWithSubmissions struct {
	Name       string                  `json:"name"`
	Sprints    []SprintWithSubmissions `json:"sprints"`
	UnknownPrs []Pr                    `json:"unknown_prs"`
}
