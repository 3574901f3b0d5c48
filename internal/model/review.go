package model

import "time"

// Review はツアーへのレビューを表す。
// Textは保存前にサニタイズ済みであることを前提とする。
type Review struct {
	ID        string    `json:"id"`
	Text      string    `json:"review"`
	Rating    int       `json:"rating"`
	TourID    string    `json:"tour_id"`
	AccountID string    `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
}
