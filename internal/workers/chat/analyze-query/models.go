package analyzequery

import "storefront-workers/internal/models"

type Input struct {
	Message string `json:"message"`
}

type Output struct {
	Analysis       models.QueryAnalysis `json:"analysis"`
	ShoppingSignal bool                 `json:"shoppingSignal"`
}
