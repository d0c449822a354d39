package dto

import "github.com/ms-lokesh/cohort-summit-api/internal/models"

// CreateTitleRequest adds a title to the catalog.
type CreateTitleRequest struct {
	Name        string             `json:"name" validate:"required,max=80"`
	Description string             `json:"description" validate:"max=500"`
	Cost        int                `json:"cost" validate:"required,min=1"`
	Rarity      models.TitleRarity `json:"rarity" validate:"required,oneof=common rare epic legendary"`
}

// RedeemResult returns the purchased title and the wallet after the spend.
type RedeemResult struct {
	Title  models.StudentTitle `json:"title"`
	Wallet models.RewardWallet `json:"wallet"`
}
