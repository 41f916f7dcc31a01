package models

// Participant is a player known to the ledger. Records live for the process
// lifetime and are mutated only by the ledger when a match resolves.
type Participant struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	Points       int    `json:"points"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	TotalMatches int    `json:"total_matches"`
}
