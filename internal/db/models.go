package db

import (
	"time"
)

// DocumentSnapshot maps shelf.document_snapshots: one row per remote
// document, refreshed by sync. Timestamp columns keep the API's string
// values verbatim so cached analysis sees exactly what the live path sees;
// tags are comma-joined.
type DocumentSnapshot struct {
	ID            string    `gorm:"column:id;type:text;primaryKey"`
	URL           string    `gorm:"column:url;type:text;not null;default:''"`
	SourceURL     string    `gorm:"column:source_url;type:text;not null;default:''"`
	Title         string    `gorm:"column:title;type:text;not null;default:''"`
	Author        string    `gorm:"column:author;type:text;not null;default:''"`
	Source        string    `gorm:"column:source;type:text;not null;default:''"`
	Category      string    `gorm:"column:category;type:text;not null;default:''"`
	Location      string    `gorm:"column:location;type:text;not null;default:''"`
	Tags          string    `gorm:"column:tags;type:text;not null;default:''"`
	SiteName      string    `gorm:"column:site_name;type:text;not null;default:''"`
	WordCount     int       `gorm:"column:word_count;type:integer;not null;default:0"`
	Summary       string    `gorm:"column:summary;type:text;not null;default:''"`
	Notes         string    `gorm:"column:notes;type:text;not null;default:''"`
	ImageURL      string    `gorm:"column:image_url;type:text;not null;default:''"`
	PublishedDate string    `gorm:"column:published_date;type:text;not null;default:''"`
	CreatedAt     string    `gorm:"column:created_at;type:text;not null;default:''"`
	UpdatedAt     string    `gorm:"column:updated_at;type:text;not null;default:''"`
	SavedAt       string    `gorm:"column:saved_at;type:text;not null;default:''"`
	SyncedAt      time.Time `gorm:"column:synced_at;type:timestamptz;not null;default:now()"`
}

func (DocumentSnapshot) TableName() string { return "shelf.document_snapshots" }

// DedupRun maps shelf.dedup_runs: one row per analysis, removal, or plan
// execution recorded for `shelf history`.
type DedupRun struct {
	RunID           int64     `gorm:"column:run_id;primaryKey;autoIncrement"`
	Kind            string    `gorm:"column:kind;type:text;not null"`
	Location        string    `gorm:"column:location;type:text;not null;default:''"`
	TotalDocuments  int       `gorm:"column:total_documents;type:integer;not null;default:0"`
	DuplicateGroups int       `gorm:"column:duplicate_groups;type:integer;not null;default:0"`
	TotalDuplicates int       `gorm:"column:total_duplicates;type:integer;not null;default:0"`
	RemovedCount    int       `gorm:"column:removed_count;type:integer;not null;default:0"`
	FailedCount     int       `gorm:"column:failed_count;type:integer;not null;default:0"`
	Status          string    `gorm:"column:status;type:text;not null;default:''"`
	ReportFile      string    `gorm:"column:report_file;type:text;not null;default:''"`
	CreatedAt       time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (DedupRun) TableName() string { return "shelf.dedup_runs" }

func autoMigrateModels() []any {
	return []any{
		&DocumentSnapshot{},
		&DedupRun{},
	}
}
