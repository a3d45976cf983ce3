package model

// VisitStats is a row of the stats table joined with its url
type VisitStats struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	VisitsCount int64  `json:"visits_count"`
}

// ShortenRequest is the POST /getShortUrl request body
type ShortenRequest struct {
	LongURL string `json:"long_url"`
}
