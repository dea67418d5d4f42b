package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateRankingRequest struct {
	Title string `json:"title"`
	Type  string `json:"type"`
}

type AddItemRequest struct {
	SubjectID string  `json:"subject_id"`
	Score     float64 `json:"score"`
}

type UpdateItemScoreRequest struct {
	Score float64 `json:"score"`
}

type RankingItemResponse struct {
	ItemID    string  `json:"item_id"`
	SubjectID string  `json:"subject_id"`
	Score     float64 `json:"score"`
	// Position is omitted until the item has been placed.
	Position int `json:"position,omitempty"`
}

type RankingResponse struct {
	RankingID string                `json:"ranking_id"`
	Title     string                `json:"title"`
	Type      string                `json:"type"`
	CreatedAt string                `json:"created_at"`
	Items     []RankingItemResponse `json:"items"`
}

type RecalculateResponse struct {
	RankingID    string `json:"ranking_id"`
	ItemCount    int    `json:"item_count"`
	ChangedCount int    `json:"changed_count"`
}

type ItemMutationResponse struct {
	Item          RankingItemResponse `json:"item"`
	Recalculation RecalculateResponse `json:"recalculation"`
}
