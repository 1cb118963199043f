package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CodeYourFuture/trainee-tracker/internal/models"
	appErrors "github.com/CodeYourFuture/trainee-tracker/pkg/errors"
)

// Sprint numbers above this bound indicate register or title drift rather
// than a real course: no course runs this long.
const maxSprintNumber = 20

var digitRunPattern = regexp.MustCompile(`\d+`)

// MatcherService assigns a trainee's pull requests to assignment slots and
// reconciles the remaining slots into missing states. The matching pass is
// pure computation over already-fetched snapshots; callers must supply the
// PR list in a stable order because slots fill first-come.
type MatcherService struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewMatcherService constructs the matcher.
func NewMatcherService(logger *zap.Logger) *MatcherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatcherService{logger: logger, now: time.Now}
}

// MatchModule produces the per-slot submission states for one module.
// Attendance states are supplied externally, one per sprint aligned by
// index; missing entries leave the seeded states in place.
func (s *MatcherService) MatchModule(module models.Module, prs []models.Pr, attendance []models.SubmissionState, region models.Region) (*models.ModuleWithSubmissions, error) {
	now := s.now()

	// Seed every slot from deadline and optionality.
	grid := make([]models.SprintWithSubmissions, len(module.Sprints))
	for sprintIdx, sprint := range module.Sprints {
		states := make([]models.SubmissionState, len(sprint.Assignments))
		past := sprint.IsInPast(region, now)
		for assignmentIdx, assignment := range sprint.Assignments {
			status := models.SubmissionMissingButNotExpected
			if past {
				if assignment.Optionality == models.OptionalityStretch {
					status = models.SubmissionMissingStretch
				} else {
					status = models.SubmissionMissingButExpected
				}
			}
			states[assignmentIdx] = models.SubmissionState{Status: status, Assignment: assignment}
		}
		grid[sprintIdx] = models.SprintWithSubmissions{Submissions: states}
	}

	// Overlay externally reconciled attendance onto the attendance slots.
	for sprintIdx, sprint := range module.Sprints {
		if sprintIdx >= len(attendance) {
			break
		}
		for assignmentIdx, assignment := range sprint.Assignments {
			if assignment.Kind == models.AssignmentAttendance {
				grid[sprintIdx].Submissions[assignmentIdx] = attendance[sprintIdx]
			}
		}
	}

	var unknownPrs []models.Pr
	for _, pr := range prs {
		claim, err := extractSprintClaim(pr.Title)
		if err != nil {
			return nil, err
		}
		s.matchPr(pr, claim, module.Sprints, grid, &unknownPrs)
	}

	return &models.ModuleWithSubmissions{
		Name:       module.Name,
		Sprints:    grid,
		UnknownPrs: unknownPrs,
	}, nil
}

// extractSprintClaim scans the PR title for a sprint number the author
// stated. The title is split on "|" and each trimmed part starting with
// "sprint" or "week" has its first digit run extracted; the last matching
// part wins. Returns a 0-based sprint index, or nil when no part claims one.
func extractSprintClaim(title string) (*int, error) {
	var claim *int
	for _, part := range strings.Split(strings.ToLower(title), "|") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, "sprint") && !strings.HasPrefix(part, "week") {
			continue
		}
		digits := digitRunPattern.FindString(part)
		if digits == "" {
			continue
		}
		number, err := strconv.Atoi(digits)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrDataIntegrity.Code, appErrors.ErrDataIntegrity.Status, fmt.Sprintf("failed to parse %q as a sprint number", digits))
		}
		if number == 0 || number > maxSprintNumber {
			return nil, appErrors.Clone(appErrors.ErrDataIntegrity, fmt.Sprintf("sprint number was impractical - expected something between 1 and %d but was %d", maxSprintNumber, number))
		}
		index := number - 1
		claim = &index
	}
	return claim, nil
}

type slotMatch struct {
	matchCount    int
	sprintIdx     int
	assignmentIdx int
	optionality   models.Optionality
}

// matchPr finds the single best open slot for the PR and fills it. With a
// sprint claim, the search is confined to the claimed sprint; a mis-stated
// claim can therefore misfile a PR, which is accepted inherited behaviour.
// Ties resolve to the first slot in sprint-then-assignment order.
func (s *MatcherService) matchPr(pr models.Pr, claim *int, sprints []models.Sprint, grid []models.SprintWithSubmissions, unknownPrs *[]models.Pr) {
	prWords := titleWordSet(pr.Title)
	if claim != nil {
		prWords.add(fmt.Sprintf("sprint%d", *claim+1))
	}

	var best *slotMatch
	for sprintIdx, sprint := range sprints {
		if claim != nil && *claim != sprintIdx {
			continue
		}
		for assignmentIdx, assignment := range sprint.Assignments {
			if assignment.Kind != models.AssignmentPullRequest {
				continue
			}
			if grid[sprintIdx].Submissions[assignmentIdx].IsSubmitted() {
				continue
			}
			assignmentWords := matchableTitleWords(assignment.Title)
			if claim != nil && assignmentWords.contains("sprint") {
				// The assignment names its sprint, so sprint numbering is a
				// meaningful discriminator for it.
				assignmentWords.add(fmt.Sprintf("sprint%d", *claim+1))
				assignmentWords.add(fmt.Sprintf("week%d", *claim+1))
			}
			matchCount := assignmentWords.intersectionCount(prWords)
			bestCount := 0
			if best != nil {
				bestCount = best.matchCount
			}
			if matchCount > bestCount {
				best = &slotMatch{
					matchCount:    matchCount,
					sprintIdx:     sprintIdx,
					assignmentIdx: assignmentIdx,
					optionality:   assignment.Optionality,
				}
			}
		}
	}

	if best != nil {
		assignment := sprints[best.sprintIdx].Assignments[best.assignmentIdx]
		grid[best.sprintIdx].Submissions[best.assignmentIdx] = models.SubmittedPullRequest(assignment, pr, best.optionality)
		return
	}
	if !pr.Closed {
		// Closed unmatched PRs are abandoned work, not worth flagging.
		*unknownPrs = append(*unknownPrs, pr)
	}
}
