package models

import "time"

// RoundResult summarizes a finished round for bookkeeping.
// WinnerID is empty when the round ended without a winner.
type RoundResult struct {
	RoomID     string    `json:"roomId"`
	WordID     int64     `json:"wordId"`
	WinnerID   string    `json:"winnerId,omitempty"`
	LoserID    string    `json:"loserId,omitempty"`
	Reason     string    `json:"reason"`
	Turns      int       `json:"turns"`
	FinishedAt time.Time `json:"finishedAt"`
}
