package models

import (
	"time"
)

/** --------------------ENTITIES-------------------- */
// Channel is a catalog entry offered to clients as an initial choice. The live
// relay accepts any channel name, cataloged or not.
type Channel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

/** -------------------- DTOs -------------------- */
type ChannelListResponse struct {
	Channels []string `json:"channels"`
}
