package reliability

import (
	"context"
	"time"
)

// backupTimeout bounds a single backup run, upload included.
const backupTimeout = 10 * time.Minute

// BackupJob runs a snapshot backup followed by remote rotation.
type BackupJob struct {
	service *BackupService
}

// NewBackupJob creates the scheduled backup job.
func NewBackupJob(service *BackupService) *BackupJob {
	return &BackupJob{service: service}
}

// Name implements scheduler.Job.
func (j *BackupJob) Name() string { return "s3_backup" }

// Run implements scheduler.Job.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	if err := j.service.CreateAndUpload(ctx); err != nil {
		return err
	}
	return j.service.RotateOldBackups(ctx)
}
