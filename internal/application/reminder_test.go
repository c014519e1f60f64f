package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/promptvault/internal/domain/model"
)

func enableAutoBackup(t *testing.T, f *fixture, frequency model.BackupFrequency) {
	t.Helper()
	require.NoError(t, f.svc.UpdateSettings(context.Background(), model.BackupSettings{
		Enabled:         true,
		RepositoryName:  "octocat/prompt-backups",
		Branch:          "main",
		AutoBackup:      true,
		BackupFrequency: frequency,
	}))
}

func collectReminders() (*[]Reminder, func(Reminder)) {
	var got []Reminder
	return &got, func(r Reminder) { got = append(got, r) }
}

func TestCheckReminder_DueWhenNoBackupEverRan(t *testing.T) {
	f := newFixture(t)
	enableAutoBackup(t, f, model.FrequencyWeekly)

	got, surface := collectReminders()
	stop := f.svc.checkReminder(context.Background(), surface)

	assert.False(t, stop)
	require.Len(t, *got, 1)
	assert.Nil(t, (*got)[0].LastBackup)
	assert.Equal(t, -1, (*got)[0].DaysSince)
}

func TestCheckReminder_NotDueAfterRecentBackup(t *testing.T) {
	f := newFixture(t)
	enableAutoBackup(t, f, model.FrequencyWeekly)
	ctx := context.Background()

	// Backed up two days ago; weekly threshold is seven.
	last := f.svc.now().Add(-48 * time.Hour)
	require.NoError(t, f.settings.Set(ctx, lastBackupKey, last.Format(time.RFC3339)))

	got, surface := collectReminders()
	stop := f.svc.checkReminder(ctx, surface)

	assert.False(t, stop)
	assert.Empty(t, *got)
}

func TestCheckReminder_DuePastFrequencyThreshold(t *testing.T) {
	f := newFixture(t)
	enableAutoBackup(t, f, model.FrequencyDaily)
	ctx := context.Background()

	last := f.svc.now().Add(-36 * time.Hour)
	require.NoError(t, f.settings.Set(ctx, lastBackupKey, last.Format(time.RFC3339)))

	got, surface := collectReminders()
	f.svc.checkReminder(ctx, surface)

	require.Len(t, *got, 1)
	assert.Equal(t, 1, (*got)[0].DaysSince)
}

func TestCheckReminder_AtMostOncePerCalendarDay(t *testing.T) {
	f := newFixture(t)
	enableAutoBackup(t, f, model.FrequencyWeekly)
	ctx := context.Background()

	got, surface := collectReminders()
	f.svc.checkReminder(ctx, surface)
	f.svc.checkReminder(ctx, surface)
	f.svc.checkReminder(ctx, surface)

	assert.Len(t, *got, 1)

	// The next day it fires again.
	f.svc.now = func() time.Time { return time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC) }
	f.svc.checkReminder(ctx, surface)
	assert.Len(t, *got, 2)
}

func TestCheckReminder_StopsWhenAutoBackupDisabled(t *testing.T) {
	f := newFixture(t)
	f.enable(t) // Enabled, but AutoBackup off.

	got, surface := collectReminders()
	stop := f.svc.checkReminder(context.Background(), surface)

	assert.True(t, stop)
	assert.Empty(t, *got)
}

func TestReminder_BackupNowRunsFallbackBackup(t *testing.T) {
	f := newFixture(t)
	enableAutoBackup(t, f, model.FrequencyWeekly)
	ctx := context.Background()

	got, surface := collectReminders()
	f.svc.checkReminder(ctx, surface)
	require.Len(t, *got, 1)

	require.NoError(t, (*got)[0].BackupNow(ctx))
	assert.Equal(t, 1, f.remote.putCalls)
}

func TestReminder_DisableTurnsOffAutoBackup(t *testing.T) {
	f := newFixture(t)
	enableAutoBackup(t, f, model.FrequencyWeekly)
	ctx := context.Background()

	got, surface := collectReminders()
	f.svc.checkReminder(ctx, surface)
	require.Len(t, *got, 1)

	require.NoError(t, (*got)[0].Disable(ctx))

	cfg, err := f.svc.Settings(ctx)
	require.NoError(t, err)
	assert.False(t, cfg.AutoBackup)

	stop := f.svc.checkReminder(ctx, surface)
	assert.True(t, stop)
}

func TestStartReminders_StopsOnContextCancel(t *testing.T) {
	f := newFixture(t)
	f.enable(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		f.svc.StartReminders(ctx, time.Minute, func(Reminder) {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on context cancel")
	}
}
