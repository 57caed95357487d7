package models

import "time"

// Client is a company whose machines are managed by Drover.
type Client struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:128;uniqueIndex;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Sites []Site `gorm:"foreignKey:ClientID"`
}

// Site is a physical or logical location belonging to a client.
type Site struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:128;not null"`
	ClientID  uint   `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Client Client `gorm:"foreignKey:ClientID"`
}
