// Package services contains the engine's domain logic: the pipeline that
// advances leads through the funnel, bulk ingestion of scraped contacts,
// and the lead/task/report operations built on the repositories.
package services

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relaycrm/outreach-engine/pkg/models"
)

// TaskTemplate describes the follow-up task an event kind schedules.
type TaskTemplate struct {
	Label     string
	DueOffset time.Duration
}

// TransitionRule maps an event kind to its target stage and, optionally,
// the follow-up task it schedules.
type TransitionRule struct {
	TargetStage models.Stage
	Task        *TaskTemplate
}

// TransitionRules is the static event-kind -> rule table. It is immutable
// after construction and injected into the pipeline engine, so tests can
// substitute alternate rule sets.
type TransitionRules struct {
	rules map[models.EventKind]TransitionRule
}

// Lookup returns the rule for kind, if one exists.
func (r *TransitionRules) Lookup(kind models.EventKind) (TransitionRule, bool) {
	rule, ok := r.rules[kind]
	return rule, ok
}

// DefaultRules returns the standard outreach funnel table.
func DefaultRules() *TransitionRules {
	return &TransitionRules{rules: map[models.EventKind]TransitionRule{
		models.EventInviteSent: {
			TargetStage: models.StageInvited,
			Task:        &TaskTemplate{Label: "Follow up on invite", DueOffset: 72 * time.Hour},
		},
		models.EventConnected: {
			TargetStage: models.StageConnected,
			Task:        &TaskTemplate{Label: "Send first message", DueOffset: 24 * time.Hour},
		},
		models.EventMessageSent: {
			TargetStage: models.StageMessaged,
			Task:        &TaskTemplate{Label: "Check for reply", DueOffset: 48 * time.Hour},
		},
		models.EventReplyReceived: {
			TargetStage: models.StageReplied,
		},
		models.EventMeetingBooked: {
			TargetStage: models.StageMeeting,
		},
	}}
}

// ruleFile is the YAML shape of a rules override file.
type ruleFile struct {
	Rules map[string]struct {
		TargetStage string `yaml:"target_stage"`
		Task        *struct {
			Label       string `yaml:"label"`
			DueAfterHrs int    `yaml:"due_after_hours"`
		} `yaml:"task"`
	} `yaml:"rules"`
}

// LoadRules reads a transition table from a YAML file. Every entry must
// name a known event kind and a valid stage; kinds absent from the file
// keep their default rule.
func LoadRules(path string) (*TransitionRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	merged := DefaultRules()
	for rawKind, entry := range file.Rules {
		kind := models.EventKind(rawKind)
		if !kind.Valid() {
			return nil, fmt.Errorf("rules file: unknown event kind %q", rawKind)
		}

		stage, err := models.ParseStage(entry.TargetStage)
		if err != nil {
			return nil, fmt.Errorf("rules file: kind %q: %w", rawKind, err)
		}

		rule := TransitionRule{TargetStage: stage}
		if entry.Task != nil {
			if entry.Task.Label == "" || entry.Task.DueAfterHrs <= 0 {
				return nil, fmt.Errorf("rules file: kind %q: task needs a label and a positive due_after_hours", rawKind)
			}
			rule.Task = &TaskTemplate{
				Label:     entry.Task.Label,
				DueOffset: time.Duration(entry.Task.DueAfterHrs) * time.Hour,
			}
		}
		merged.rules[kind] = rule
	}

	return merged, nil
}
