package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type BookModel struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	Title           string `gorm:"size:200;not null"`
	Author          string `gorm:"size:100;not null;index"`
	ISBN            string `gorm:"size:13"`
	Genre           string `gorm:"size:20;not null"`
	Pages           *int
	PublicationYear *int
	Status          string `gorm:"size:20;not null"`
	Rating          *int
	Notes           string    `gorm:"size:1000"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

type ProductModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Name        string    `gorm:"size:100;not null;index"`
	Price       float64   `gorm:"not null"`
	Quantity    int       `gorm:"not null"`
	Description string    `gorm:"size:250"`
	CategoryID  *int64    `gorm:"index"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type CategoryModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Name        string    `gorm:"size:100;uniqueIndex;not null"`
	Description string    `gorm:"size:250"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type UserModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Username  string `gorm:"size:50;not null;index"`
	Email     string `gorm:"size:100;uniqueIndex;not null"`
	Age       *int
	Phone     string    `gorm:"size:16"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type BackupModel struct {
	ID        string         `gorm:"primaryKey"`
	Kind      string         `gorm:"size:20;not null;index"`
	RecordID  int64          `gorm:"not null;index"`
	Snapshot  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"not null"`
}
