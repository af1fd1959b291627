package domain

// Progress is the snapshot polled by the serving layer while a run is active.
// Details holds the names of the most recently processed items, capped at 5.
type Progress struct {
	Phase   string   `json:"phase"`
	Status  string   `json:"status"`
	Current int      `json:"current"`
	Total   int      `json:"total"`
	Details []string `json:"details"`
}
