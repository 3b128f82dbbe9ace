package domain

// SearchHit is one indexed chunk matching a search query.
type SearchHit struct {
	DocumentID string  `json:"documentId"`
	FileName   string  `json:"fileName"`
	Category   string  `json:"category"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}
