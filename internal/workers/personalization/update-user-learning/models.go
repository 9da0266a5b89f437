package updateuserlearning

import "storefront-workers/internal/models"

type Input struct {
	UserID   string               `json:"userId"`
	Message  string               `json:"message"`
	Analysis models.QueryAnalysis `json:"analysis"`
}

type Output struct {
	Preferences models.UserPreferences `json:"preferences"`
}
