package model

import "time"

// JobStatus 表示母带处理任务的状态
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// MasterJob represents one loudness-compliance mastering job.
// The attempt log is the serialized convergence audit trail; it is written
// once on completion and never mutated afterwards.
type MasterJob struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	InputPath  string    `gorm:"size:512" json:"inputPath"`
	OutputPath string    `gorm:"size:512" json:"outputPath"`
	CeilingDb  float64   `json:"ceilingDb"`
	BitDepth   int       `json:"bitDepth"`
	SampleRate int       `json:"sampleRate"`
	Status     JobStatus `gorm:"size:16;index" json:"status"`

	// Outcome fields, populated when the job completes.
	GainDb         float64 `json:"gainDb"`
	Passes         bool    `json:"passes"`
	AttemptCount   int     `json:"attemptCount"`
	AttemptLog     string  `gorm:"type:text" json:"-"` // JSON-encoded attempts
	IntegratedLufs float64 `json:"integratedLufs"`
	TruePeakDb     float64 `json:"truePeakDb"`
	ArtifactURL    string  `gorm:"size:512" json:"artifactUrl"`
	ErrorText      string  `gorm:"type:text" json:"errorText,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (MasterJob) TableName() string {
	return "master_jobs"
}
