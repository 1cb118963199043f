package models

import "time"

// Region identifies where a trainee attends classes. Regions are an open
// enumeration sourced from the trainee directory.
type Region string

// RegionUnknown is assigned to trainees missing from the directory.
const RegionUnknown Region = "unknown"

var regionTimezones = map[Region]string{
	"South Africa": "Africa/Johannesburg",
}

const defaultTimezone = "Europe/London"

// Timezone returns the IANA location classes run in for this region.
func (r Region) Timezone() *time.Location {
	name, ok := regionTimezones[r]
	if !ok {
		name = defaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Optionality classifies how an assignment counts towards progress.
type Optionality string

const (
	OptionalityMandatory Optionality = "mandatory"
	OptionalityStretch   Optionality = "stretch"
)

// Valid returns true when the optionality is a supported value.
func (o Optionality) Valid() bool {
	switch o {
	case OptionalityMandatory, OptionalityStretch:
		return true
	default:
		return false
	}
}

// AssignmentKind discriminates the assignment variants.
type AssignmentKind string

const (
	AssignmentAttendance  AssignmentKind = "attendance"
	AssignmentPullRequest AssignmentKind = "pull_request"
)

// Assignment is a unit of expected work tied to one sprint: either class
// attendance or an expected pull request parsed from a curriculum issue.
// Assignments are immutable once their course tree is built.
type Assignment struct {
	Kind AssignmentKind `json:"kind"`

	// Attendance assignments.
	ClassDates map[Region]time.Time `json:"class_dates,omitempty"`

	// Expected pull request assignments.
	Title       string      `json:"title,omitempty"`
	URL         string      `json:"url,omitempty"`
	Optionality Optionality `json:"optionality,omitempty"`
}

// NewAttendanceAssignment seeds the attendance slot for a sprint.
// Attendance is always mandatory.
func NewAttendanceAssignment(classDates map[Region]time.Time) Assignment {
	return Assignment{
		Kind:        AssignmentAttendance,
		ClassDates:  classDates,
		Optionality: OptionalityMandatory,
	}
}

// NewExpectedPullRequest builds a pull request assignment from an issue.
func NewExpectedPullRequest(title, url string, optionality Optionality) Assignment {
	return Assignment{
		Kind:        AssignmentPullRequest,
		Title:       title,
		URL:         url,
		Optionality: optionality,
	}
}

// Sprint holds the ordered assignments for one sprint plus the per-region
// class dates used for deadline checks.
type Sprint struct {
	Assignments []Assignment         `json:"assignments"`
	Dates       map[Region]time.Time `json:"dates"`
}

// IsInPast reports whether the sprint's class date has passed for the region.
// An unknown region or a region without a configured date is treated as
// always past. That default is provisional, not a hardened guarantee.
func (s Sprint) IsInPast(region Region, now time.Time) bool {
	if region == RegionUnknown {
		return true
	}
	date, ok := s.Dates[region]
	if !ok {
		return true
	}
	today := now.UTC().Truncate(24 * time.Hour)
	return !today.Before(date)
}

// Module is an ordered sequence of sprints. Identity is the module's position
// and name within its course.
type Module struct {
	Name    string   `json:"name"`
	Sprints []Sprint `json:"sprints"`
}

// AssignmentCount returns the total number of assignment slots in the module.
func (m Module) AssignmentCount() int {
	count := 0
	for _, sprint := range m.Sprints {
		count += len(sprint.Assignments)
	}
	return count
}

// Course is the fully built schedule tree for one batch of a course.
// It is constructed once per request and never mutated afterwards.
type Course struct {
	Name      string    `json:"name"`
	Modules   []Module  `json:"modules"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// ModuleNames returns the course's module names in order.
func (c Course) ModuleNames() []string {
	names := make([]string, 0, len(c.Modules))
	for _, module := range c.Modules {
		names = append(names, module.Name)
	}
	return names
}

// ModuleByName returns the named module, or nil when absent.
func (c Course) ModuleByName(name string) *Module {
	for i := range c.Modules {
		if c.Modules[i].Name == name {
			return &c.Modules[i]
		}
	}
	return nil
}
