package db

import "time"

// RawItem maps news.raw_items. Rows are an append-only audit log of every
// fetched feed entry; they are never updated or deleted, and the same logical
// entry may appear once per run.
type RawItem struct {
	RawItemID   int64     `gorm:"column:raw_item_id;primaryKey;autoIncrement"`
	Source      string    `gorm:"column:source;type:text;not null"`
	Title       string    `gorm:"column:title;type:text;not null"`
	Description string    `gorm:"column:description;type:text;not null;default:''"`
	URL         string    `gorm:"column:url;type:text;not null;default:''"`
	PublishedAt time.Time `gorm:"column:published_at;type:timestamptz;not null"`
	FetchedAt   time.Time `gorm:"column:fetched_at;type:timestamptz;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (RawItem) TableName() string { return "news.raw_items" }

// PublishedStory maps news.published_stories. The unique key_hash constraint
// is the correctness backstop for at-most-once publication under overlapping
// runs. Rows are fixed at first publication.
type PublishedStory struct {
	StoryID     int64     `gorm:"column:story_id;primaryKey;autoIncrement"`
	KeyHash     string    `gorm:"column:key_hash;type:text;not null;unique"`
	Title       string    `gorm:"column:title;type:text;not null"`
	Summary     string    `gorm:"column:summary;type:text;not null;default:''"`
	PrimaryURL  string    `gorm:"column:primary_url;type:text;not null;default:''"`
	Sources     string    `gorm:"column:sources;type:text;not null;default:''"`
	PublishedAt time.Time `gorm:"column:published_at;type:timestamptz;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (PublishedStory) TableName() string { return "news.published_stories" }

func autoMigrateModels() []any {
	return []any{
		&RawItem{},
		&PublishedStory{},
	}
}
