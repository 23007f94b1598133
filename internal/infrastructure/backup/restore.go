package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	"streampulse/pkg/backup"

	"go.uber.org/zap"
)

// RestoreService rebuilds the profile and notification stores from a
// snapshot. Follow edges are restored from each profile's materialized sets;
// the repair sweep reconciles whatever a partial restore leaves asymmetric.
type RestoreService struct {
	backupService *backup.BackupService
	profiles      ports.ProfileRepository
	notifications ports.NotificationRepository
	logger        *zap.SugaredLogger
}

func NewRestoreService(
	backupService *backup.BackupService,
	profiles ports.ProfileRepository,
	notifications ports.NotificationRepository,
	logger *zap.SugaredLogger,
) *RestoreService {
	return &RestoreService{
		backupService: backupService,
		profiles:      profiles,
		notifications: notifications,
		logger:        logger,
	}
}

type RestoreOptions struct {
	OverwriteExisting bool
	PointInTime       *time.Time
}

func DefaultRestoreOptions() RestoreOptions {
	return RestoreOptions{}
}

// RestoreFromBackup loads a snapshot and recreates its profiles.
func (rs *RestoreService) RestoreFromBackup(ctx context.Context, backupName string, options RestoreOptions) error {
	rs.logger.Infow("starting restore", "backup_name", backupName)

	backupData, err := rs.backupService.RestoreBackup(ctx, backupName)
	if err != nil {
		return fmt.Errorf("failed to load backup: %w", err)
	}
	if backupData.Version == "" {
		return fmt.Errorf("invalid backup: missing version")
	}

	restored := 0
	for email, profileData := range backupData.Profiles {
		existing, err := rs.profiles.GetByEmail(ctx, domain.Email(email))
		if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
			return fmt.Errorf("failed to check profile %s: %w", email, err)
		}
		if existing != nil && !options.OverwriteExisting {
			continue
		}

		profileJSON, err := json.Marshal(profileData)
		if err != nil {
			return fmt.Errorf("failed to marshal profile %s: %w", email, err)
		}
		var profile domain.Profile
		if err := json.Unmarshal(profileJSON, &profile); err != nil {
			return fmt.Errorf("failed to unmarshal profile %s: %w", email, err)
		}

		if existing == nil {
			err = rs.profiles.Create(ctx, &profile)
		} else {
			err = rs.profiles.Update(ctx, &profile)
		}
		if err != nil {
			return fmt.Errorf("failed to restore profile %s: %w", email, err)
		}
		restored++
	}

	restoredRows := 0
	for id, rowData := range backupData.Notifications {
		rowJSON, err := json.Marshal(rowData)
		if err != nil {
			return fmt.Errorf("failed to marshal notification %s: %w", id, err)
		}
		var n domain.Notification
		if err := json.Unmarshal(rowJSON, &n); err != nil {
			return fmt.Errorf("failed to unmarshal notification %s: %w", id, err)
		}

		// Create is the only write path; a row that already exists keeps
		// its current state.
		if err := rs.notifications.Create(ctx, &n); err != nil {
			rs.logger.Debugw("skipping existing notification", "id", id, "error", err)
			continue
		}
		restoredRows++
	}

	rs.logger.Infow("restore completed",
		"backup_name", backupName,
		"profiles", restored,
		"notifications", restoredRows,
	)
	return nil
}

// FindBackupByTime returns the newest backup at or before the target time.
func (rs *RestoreService) FindBackupByTime(ctx context.Context, targetTime time.Time) (string, error) {
	backups, err := rs.backupService.ListBackups(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list backups: %w", err)
	}

	var closestBackup string
	var closestTime time.Time
	var found bool

	for _, backupName := range backups {
		if len(backupName) < 22 {
			continue
		}
		timestamp, err := time.Parse("20060102-150405", backupName[7:22])
		if err != nil {
			continue
		}

		if !timestamp.After(targetTime) {
			if !found || timestamp.After(closestTime) {
				closestBackup = backupName
				closestTime = timestamp
				found = true
			}
		}
	}

	if !found {
		return "", fmt.Errorf("no backup found before or at target time: %v", targetTime)
	}
	return closestBackup, nil
}
