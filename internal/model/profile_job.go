package model

// ProfileExtractJob carries one user utterance to the profile enrichment worker.
type ProfileExtractJob struct {
	PersonID uint   `json:"person_id"`
	UserID   string `json:"user_id"`
	Text     string `json:"text"`
}
