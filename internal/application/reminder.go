package application

import (
	"context"
	"log/slog"
	"time"
)

// reminderInitialDelay is the pause before the first due check so startup
// settles before the user can be interrupted.
const reminderInitialDelay = 5 * time.Second

// Reminder is surfaced to the user when a backup is overdue. The three
// callbacks are the only actions the surface offers; each is safe to call at
// most once.
type Reminder struct {
	LastBackup *time.Time // nil when no backup has ever run.
	DaysSince  int        // -1 when LastBackup is nil.

	// BackupNow runs a background backup with local-export fallback.
	BackupNow func(ctx context.Context) error

	// RemindLater suppresses further reminders for the rest of the day.
	RemindLater func(ctx context.Context) error

	// Disable turns auto-backup off, stopping the scheduler.
	Disable func(ctx context.Context) error
}

// StartReminders runs the backup reminder loop: one check after a short
// initial delay, then one per interval. A reminder fires when the last backup
// is older than the configured frequency allows, at most once per calendar
// day. The loop stops when auto-backup is disabled or the context is
// canceled. StartReminders blocks until it stops.
func (s *BackupService) StartReminders(ctx context.Context, interval time.Duration, surface func(Reminder)) {
	initial := time.NewTimer(reminderInitialDelay)
	defer initial.Stop()

	select {
	case <-ctx.Done():
		return
	case <-initial.C:
	}

	if stop := s.checkReminder(ctx, surface); stop {
		slog.Info("reminder scheduler stopped", "reason", "auto-backup disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
			if stop := s.checkReminder(ctx, surface); stop {
				slog.Info("reminder scheduler stopped", "reason", "auto-backup disabled")
				return
			}
		}
	}
}

// checkReminder evaluates whether a backup is due and surfaces a reminder if
// so. Returns true when the scheduler should stop.
func (s *BackupService) checkReminder(ctx context.Context, surface func(Reminder)) bool {
	cfg, err := s.Settings(ctx)
	if err != nil {
		slog.Error("reminder check failed", "error", err)
		return false
	}
	if !cfg.Enabled || !cfg.AutoBackup {
		return true
	}

	now := s.now().UTC()

	if cfg.LastBackupReminder != nil && sameDay(now, *cfg.LastBackupReminder) {
		return false
	}

	last, err := s.LastBackup(ctx)
	if err != nil {
		slog.Error("reminder check failed", "error", err)
		return false
	}

	daysSince := -1
	if last != nil {
		daysSince = int(now.Sub(*last).Hours() / 24)
		if daysSince < cfg.BackupFrequency.Days() {
			return false
		}
	}

	// Stamp before surfacing so a crash between the two cannot re-prompt
	// more than once per day.
	cfg.LastBackupReminder = &now
	if err := s.UpdateSettings(ctx, cfg); err != nil {
		slog.Error("failed to record reminder time", "error", err)
		return false
	}

	slog.Info("backup reminder due", "days_since", daysSince, "frequency", cfg.BackupFrequency)

	surface(Reminder{
		LastBackup: last,
		DaysSince:  daysSince,
		BackupNow: func(ctx context.Context) error {
			_, err := s.Backup(ctx, false, true)
			return err
		},
		RemindLater: func(ctx context.Context) error {
			return s.stampReminder(ctx)
		},
		Disable: func(ctx context.Context) error {
			return s.disableAutoBackup(ctx)
		},
	})

	return false
}

// stampReminder re-persists the reminder timestamp. Re-reads settings so a
// concurrent update to other fields is not clobbered more than the store's
// last-write-wins discipline already allows.
func (s *BackupService) stampReminder(ctx context.Context) error {
	cfg, err := s.Settings(ctx)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	cfg.LastBackupReminder = &now
	return s.UpdateSettings(ctx, cfg)
}

func (s *BackupService) disableAutoBackup(ctx context.Context) error {
	cfg, err := s.Settings(ctx)
	if err != nil {
		return err
	}
	cfg.AutoBackup = false
	return s.UpdateSettings(ctx, cfg)
}

// sameDay reports whether a and b fall on the same UTC calendar day.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
