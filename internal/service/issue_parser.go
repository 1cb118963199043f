package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/CodeYourFuture/trainee-tracker/internal/models"
)

const (
	sprintLabelPrefix      = "\U0001F4C5 Sprint "
	submitLabelPrefix      = "Submit:"
	priorityMandatoryLabel = "\U0001F550 Priority Mandatory"
	priorityStretchLabel   = "\U0001F3DD️ Priority Stretch"
)

const (
	submitValuePR       = "PR"
	submitValueNone     = "None"
	submitValueCodility = "Codility"
	submitValueIssue    = "Issue"
	submitValueSlack    = "Slack"
)

// LabelErrorReason enumerates the ways curriculum issue labels can be wrong.
type LabelErrorReason string

const (
	ReasonBadSprintNumber         LabelErrorReason = "bad_sprint_number"
	ReasonDuplicateSubmitLabel    LabelErrorReason = "duplicate_submit_label"
	ReasonDuplicatePriorityLabel  LabelErrorReason = "duplicate_priority_label"
	ReasonMissingSubmitLabel      LabelErrorReason = "missing_submit_label"
	ReasonMissingPriorityLabel    LabelErrorReason = "missing_priority_label"
	ReasonMissingSprintLabel      LabelErrorReason = "missing_sprint_label"
	ReasonUnrecognizedSubmitValue LabelErrorReason = "unrecognized_submit_value"
)

const badLabelGuidance = "\n\nIf this issue was made by a curriculum team member it should be given correct labels.\nIf this issue was created by a trainee for step submission, it should probably be closed (and they should create the issue in their fork)."

// LabelError is a user-addressable curriculum labelling problem. It always
// names the offending issue so the curriculum team can fix it.
type LabelError struct {
	Reason   LabelErrorReason
	IssueURL string
	Detail   string
}

func (e *LabelError) Error() string {
	var message string
	switch e.Reason {
	case ReasonBadSprintNumber:
		message = fmt.Sprintf("sprint label wasn't a positive number: %s", e.Detail)
	case ReasonDuplicateSubmitLabel:
		message = "duplicate submit labels"
	case ReasonDuplicatePriorityLabel:
		message = "duplicate priority labels"
	case ReasonMissingSubmitLabel:
		message = "no submit label." + badLabelGuidance
	case ReasonMissingPriorityLabel:
		message = "no priority label." + badLabelGuidance
	case ReasonMissingSprintLabel:
		message = "no sprint label." + badLabelGuidance
	case ReasonUnrecognizedSubmitValue:
		message = fmt.Sprintf("submit label wasn't recognised: %s", e.Detail)
	default:
		message = e.Detail
	}
	return fmt.Sprintf("failed to parse issue %s - %s", e.IssueURL, message)
}

// SprintAssignment pairs a 1-based sprint number with the assignment the
// issue produced for it. Assignment is nil for submit kinds that are tracked
// but not yet modelled (None, Codility, Issue, Slack); the sprint number is
// still reported so schedule bounds can be validated.
type SprintAssignment struct {
	SprintNumber int
	Assignment   *models.Assignment
}

// labelBuilder accumulates at most one value per label category while
// scanning, recording violations so they can be reported with the right
// severity once the submit kind is known.
type labelBuilder struct {
	issueURL          string
	sprints           []int
	submit            *string
	priority          *models.Optionality
	duplicatePriority bool
}

func (b *labelBuilder) addSprint(raw string) error {
	number, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || number <= 0 {
		return &LabelError{Reason: ReasonBadSprintNumber, IssueURL: b.issueURL, Detail: sprintLabelPrefix + raw}
	}
	b.sprints = append(b.sprints, number)
	return nil
}

func (b *labelBuilder) setSubmit(raw string) error {
	if b.submit != nil {
		return &LabelError{Reason: ReasonDuplicateSubmitLabel, IssueURL: b.issueURL}
	}
	value := strings.TrimSpace(raw)
	b.submit = &value
	return nil
}

func (b *labelBuilder) setPriority(optionality models.Optionality) {
	if b.priority != nil {
		b.duplicatePriority = true
		return
	}
	b.priority = &optionality
}

// ParseIssue turns one issue's labels into zero or more sprint assignments.
// Pull request issues produce nothing: issues and PRs share one numbering and
// label space. Every sprint label on the issue yields its own pair sharing
// the same assignment, which lets one issue count towards several sprints.
func ParseIssue(issue models.Issue) ([]SprintAssignment, error) {
	if issue.IsPullRequest {
		return nil, nil
	}

	builder := labelBuilder{issueURL: issue.URL}
	for _, label := range issue.Labels {
		if raw, ok := strings.CutPrefix(label, sprintLabelPrefix); ok {
			if err := builder.addSprint(raw); err != nil {
				return nil, err
			}
		}
		if raw, ok := strings.CutPrefix(label, submitLabelPrefix); ok {
			if err := builder.setSubmit(raw); err != nil {
				return nil, err
			}
		}
		switch label {
		case priorityMandatoryLabel:
			builder.setPriority(models.OptionalityMandatory)
		case priorityStretchLabel:
			builder.setPriority(models.OptionalityStretch)
		}
	}

	if builder.submit == nil {
		return nil, &LabelError{Reason: ReasonMissingSubmitLabel, IssueURL: issue.URL}
	}

	var assignment *models.Assignment
	switch *builder.submit {
	case submitValueNone, submitValueCodility, submitValueIssue, submitValueSlack:
		// Tracked but not yet modelled as assignments.
	case submitValuePR:
		if builder.duplicatePriority {
			return nil, &LabelError{Reason: ReasonDuplicatePriorityLabel, IssueURL: issue.URL}
		}
		if builder.priority == nil {
			return nil, &LabelError{Reason: ReasonMissingPriorityLabel, IssueURL: issue.URL}
		}
		built := models.NewExpectedPullRequest(issue.Title, issue.URL, *builder.priority)
		assignment = &built
	default:
		return nil, &LabelError{Reason: ReasonUnrecognizedSubmitValue, IssueURL: issue.URL, Detail: *builder.submit}
	}

	if len(builder.sprints) == 0 {
		if assignment == nil {
			return nil, nil
		}
		return nil, &LabelError{Reason: ReasonMissingSprintLabel, IssueURL: issue.URL}
	}

	pairs := make([]SprintAssignment, 0, len(builder.sprints))
	for _, sprint := range builder.sprints {
		pairs = append(pairs, SprintAssignment{SprintNumber: sprint, Assignment: assignment})
	}
	return pairs, nil
}
