package models

// SearchResult represents a single course hit.
type SearchResult struct {
	Key      string  `json:"key"`
	CourseID string  `json:"course_id"`
	NRC      string  `json:"nrc"`
	Period   string  `json:"period"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Rank     int     `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
	// AutoFuzzy indicates that fuzzy search was automatically enabled because the
	// initial exact search returned no results.
	AutoFuzzy bool `json:"auto_fuzzy,omitempty"`
}
