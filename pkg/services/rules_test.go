package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycrm/outreach-engine/pkg/models"
)

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		kind      models.EventKind
		stage     models.Stage
		taskLabel string
		dueOffset time.Duration
	}{
		{models.EventInviteSent, models.StageInvited, "Follow up on invite", 72 * time.Hour},
		{models.EventConnected, models.StageConnected, "Send first message", 24 * time.Hour},
		{models.EventMessageSent, models.StageMessaged, "Check for reply", 48 * time.Hour},
		{models.EventReplyReceived, models.StageReplied, "", 0},
		{models.EventMeetingBooked, models.StageMeeting, "", 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			rule, ok := rules.Lookup(tt.kind)
			require.True(t, ok)
			assert.Equal(t, tt.stage, rule.TargetStage)
			if tt.taskLabel == "" {
				assert.Nil(t, rule.Task)
			} else {
				require.NotNil(t, rule.Task)
				assert.Equal(t, tt.taskLabel, rule.Task.Label)
				assert.Equal(t, tt.dueOffset, rule.Task.DueOffset)
			}
		})
	}

	_, ok := rules.Lookup("profile_viewed")
	assert.False(t, ok)
}

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRules_MergesOverDefaults(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  invite_sent:
    target_stage: Invited
    task:
      label: Nudge after invite
      due_after_hours: 96
`)

	rules, err := LoadRules(path)
	require.NoError(t, err)

	overridden, ok := rules.Lookup(models.EventInviteSent)
	require.True(t, ok)
	require.NotNil(t, overridden.Task)
	assert.Equal(t, "Nudge after invite", overridden.Task.Label)
	assert.Equal(t, 96*time.Hour, overridden.Task.DueOffset)

	// Kinds absent from the file keep their defaults.
	kept, ok := rules.Lookup(models.EventConnected)
	require.True(t, ok)
	assert.Equal(t, "Send first message", kept.Task.Label)
}

func TestLoadRules_RejectsUnknownKind(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  profile_viewed:
    target_stage: Invited
`)

	_, err := LoadRules(path)
	assert.Error(t, err)
}

func TestLoadRules_RejectsInvalidStage(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  invite_sent:
    target_stage: Pending
`)

	_, err := LoadRules(path)
	assert.Error(t, err)
}

func TestLoadRules_RejectsBadTask(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  invite_sent:
    target_stage: Invited
    task:
      label: ""
      due_after_hours: 0
`)

	_, err := LoadRules(path)
	assert.Error(t, err)
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
