package indexer

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventRecord is a committed ledger event as stored by the indexer. ID is
// assigned in publication order and doubles as the listing cursor.
type EventRecord struct {
	ID         uint64            `gorm:"primaryKey;autoIncrement" json:"id"`
	Type       string            `gorm:"index;not null" json:"type"`
	Contract   string            `gorm:"index;not null" json:"contract"`
	CourseID   *uint64           `gorm:"index" json:"courseId,omitempty"`
	Account    string            `gorm:"index" json:"account,omitempty"`
	Attributes datatypes.JSONMap `json:"attributes"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// TableName pins the table name independent of the struct name.
func (EventRecord) TableName() string { return "ledger_events" }

// AutoMigrate creates or updates the indexer schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&EventRecord{})
}
