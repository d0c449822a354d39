package models

import "time"

// TitleRarity tags catalog items.
type TitleRarity string

const (
	RarityCommon    TitleRarity = "common"
	RarityRare      TitleRarity = "rare"
	RarityEpic      TitleRarity = "epic"
	RarityLegendary TitleRarity = "legendary"
)

// Title is a redeemable catalog item priced in reward credits.
type Title struct {
	ID          string      `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	Description string      `db:"description" json:"description"`
	Cost        int         `db:"cost" json:"cost"`
	Rarity      TitleRarity `db:"rarity" json:"rarity"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// StudentTitle records ownership; at most one row per student is equipped.
type StudentTitle struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	TitleID    string    `db:"title_id" json:"title_id"`
	IsEquipped bool      `db:"is_equipped" json:"is_equipped"`
	RedeemedAt time.Time `db:"redeemed_at" json:"redeemed_at"`
}

// OwnedTitle joins ownership with catalog detail.
type OwnedTitle struct {
	StudentTitle
	Name   string      `db:"name" json:"name"`
	Rarity TitleRarity `db:"rarity" json:"rarity"`
}

// RedeemReason tags the spend transaction for a title purchase.
func RedeemReason(t Title) string {
	return "title:" + t.Name
}
