package model

import "time"

// Difficulty はツアーの難易度を表す。
type Difficulty string

const (
	// DifficultyEasy は初級。
	DifficultyEasy Difficulty = "easy"
	// DifficultyMedium は中級。
	DifficultyMedium Difficulty = "medium"
	// DifficultyDifficult は上級。
	DifficultyDifficult Difficulty = "difficult"
)

// ValidDifficulty はdが定義済み難易度かどうかを返す。
func ValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyDifficult:
		return true
	default:
		return false
	}
}

// Tour は販売ツアーを表す。
// SecretTourがtrueのツアーは一覧系クエリから常に除外される。
type Tour struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Slug            string      `json:"slug"`
	Duration        int         `json:"duration"`
	MaxGroupSize    int         `json:"max_group_size"`
	Difficulty      Difficulty  `json:"difficulty"`
	RatingsAverage  float64     `json:"ratings_average"`
	RatingsQuantity int         `json:"ratings_quantity"`
	Price           float64     `json:"price"`
	PriceDiscount   float64     `json:"price_discount,omitempty"`
	Summary         string      `json:"summary"`
	Description     string      `json:"description,omitempty"`
	ImageCover      string      `json:"image_cover"`
	StartDates      []time.Time `json:"start_dates,omitempty"`
	SecretTour      bool        `json:"-"`
	CreatedAt       time.Time   `json:"created_at"`
}

// TourStats は難易度ごとの集計結果を表す。
type TourStats struct {
	Difficulty Difficulty `json:"difficulty"`
	NumTours   int        `json:"num_tours"`
	NumRatings int        `json:"num_ratings"`
	AvgRating  float64    `json:"avg_rating"`
	AvgPrice   float64    `json:"avg_price"`
	MinPrice   float64    `json:"min_price"`
	MaxPrice   float64    `json:"max_price"`
}
