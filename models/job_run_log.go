package models

import (
	"time"

	"gorm.io/datatypes"
)

// JobRunStatus итоговый статус запуска пакетной задачи
type JobRunStatus string

const (
	JobRunStatusSuccess JobRunStatus = "success"
	JobRunStatusPartial JobRunStatus = "partial"
	JobRunStatusFailed  JobRunStatus = "failed"
)

// JobRunLog сводка одного запуска пакетной задачи. Используется только для наблюдения.
type JobRunLog struct {
	ID               string         `gorm:"primaryKey;type:uuid" json:"id"`
	JobName          string         `gorm:"column:job_name;size:100;not null;index" json:"job_name"`
	Status           JobRunStatus   `gorm:"column:status;type:varchar(20);not null" json:"status"`
	StartedAt        time.Time      `gorm:"column:started_at;not null" json:"started_at"`
	CompletedAt      time.Time      `gorm:"column:completed_at;not null" json:"completed_at"`
	TotalCount       int            `gorm:"column:total_count;not null;default:0" json:"total_count"`
	SuccessCount     int            `gorm:"column:success_count;not null;default:0" json:"success_count"`
	FailedCount      int            `gorm:"column:failed_count;not null;default:0" json:"failed_count"`
	SkippedCount     int            `gorm:"column:skipped_count;not null;default:0" json:"skipped_count"`
	TotalAmountCents int64          `gorm:"column:total_amount_cents;not null;default:0" json:"total_amount_cents"`
	ProcessingTimeMs int64          `gorm:"column:processing_time_ms;not null;default:0" json:"processing_time_ms"`
	ErrorMessage     *string        `gorm:"column:error_message" json:"error_message,omitempty"`
	Details          datatypes.JSON `gorm:"column:details;type:jsonb" json:"details,omitempty"`
	CreatedAt        time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (JobRunLog) TableName() string {
	return "job_run_logs"
}
