package model

type SourcesResponse struct {
	Selected string   `json:"selected"`
	Sources  []Source `json:"sources"`
}

type SelectSourceRequest struct {
	ID string `json:"id"`
}

type NotesResponse struct {
	Notes []ActiveNote `json:"notes"`
}

type OperationStats struct {
	Count int     `json:"count"`
	AvgMs float64 `json:"avg_ms"`
	MinMs float64 `json:"min_ms"`
	MaxMs float64 `json:"max_ms"`
	P95Ms float64 `json:"p95_ms"`
}

type StatsResponse struct {
	Operations map[string]OperationStats `json:"operations"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
}
