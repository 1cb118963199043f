package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Date is a civil date in YYYY-MM-DD form.
type Date struct {
	time.Time
}

// UnmarshalYAML parses a YYYY-MM-DD scalar.
func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.Parse("2006-01-02", node.Value)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", node.Value, err)
	}
	d.Time = parsed
	return nil
}

// Schedule is the static course schedule document. Modules and sprints are
// ordered; order is part of the course identity.
type Schedule struct {
	Courses []CourseSchedule `yaml:"courses"`
}

// CourseSchedule groups the batches of one course.
type CourseSchedule struct {
	Name    string          `yaml:"name"`
	Batches []BatchSchedule `yaml:"batches"`
}

// BatchSchedule carries the dates of one batch of a course.
type BatchSchedule struct {
	Name    string           `yaml:"name"`
	Start   Date             `yaml:"start"`
	End     Date             `yaml:"end"`
	Modules []ModuleSchedule `yaml:"modules"`
}

// ModuleSchedule lists a module's sprints in order.
type ModuleSchedule struct {
	Name    string           `yaml:"name"`
	Sprints []SprintSchedule `yaml:"sprints"`
}

// SprintSchedule maps region names to the sprint's class date.
type SprintSchedule struct {
	Dates map[string]Date `yaml:"dates"`
}

// Course returns the named course schedule, or nil.
func (s *Schedule) Course(name string) *CourseSchedule {
	for i := range s.Courses {
		if s.Courses[i].Name == name {
			return &s.Courses[i]
		}
	}
	return nil
}

// Batch returns the named batch schedule, or nil.
func (c *CourseSchedule) Batch(name string) *BatchSchedule {
	for i := range c.Batches {
		if c.Batches[i].Name == name {
			return &c.Batches[i]
		}
	}
	return nil
}

// LoadSchedule reads and validates the schedule document at path.
func LoadSchedule(path string) (*Schedule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule %s: %w", path, err)
	}
	schedule := &Schedule{}
	if err := yaml.Unmarshal(raw, schedule); err != nil {
		return nil, fmt.Errorf("parse schedule %s: %w", path, err)
	}
	for _, course := range schedule.Courses {
		if course.Name == "" {
			return nil, fmt.Errorf("schedule %s: course with empty name", path)
		}
		for _, batch := range course.Batches {
			if batch.Name == "" {
				return nil, fmt.Errorf("schedule %s: course %s has a batch with empty name", path, course.Name)
			}
			if !batch.Start.Before(batch.End.Time) {
				return nil, fmt.Errorf("schedule %s: batch %s/%s starts on or after its end date", path, course.Name, batch.Name)
			}
			for _, module := range batch.Modules {
				if module.Name == "" {
					return nil, fmt.Errorf("schedule %s: batch %s/%s has a module with empty name", path, course.Name, batch.Name)
				}
			}
		}
	}
	return schedule, nil
}
