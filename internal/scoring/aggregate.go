package scoring

import (
	"sort"

	"github.com/abrezinsky/pizzarate/internal/models"
)

// PerRatingScore is the sum of a rating's criterion values divided by the
// fixed criterion count. Missing criteria contribute nothing.
func PerRatingScore(r models.Rating) float64 {
	sum := 0
	for _, c := range criteria {
		sum += r.Criteria[c.Key]
	}
	return float64(sum) / float64(CriterionCount)
}

// UserScoreForPizza returns the per-rating score of userID's rating for pizzaID
func UserScoreForPizza(ratings []models.Rating, pizzaID, userID string) (float64, bool) {
	for _, r := range ratings {
		if r.PizzaID == pizzaID && r.UserID == userID {
			return PerRatingScore(r), true
		}
	}
	return 0, false
}

// AverageScoreForPizza averages per-rating scores for pizzaID.
// The second result is false when the pizza has no ratings.
func AverageScoreForPizza(ratings []models.Rating, pizzaID string) (float64, bool) {
	var total float64
	n := 0
	for _, r := range ratings {
		if r.PizzaID != pizzaID {
			continue
		}
		total += PerRatingScore(r)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}

// RatingCountForPizza counts ratings for pizzaID
func RatingCountForPizza(ratings []models.Rating, pizzaID string) int {
	n := 0
	for _, r := range ratings {
		if r.PizzaID == pizzaID {
			n++
		}
	}
	return n
}

// PizzaScore is one scoreboard row
type PizzaScore struct {
	PizzaID     string   `json:"pizza_id"`
	Name        string   `json:"name"`
	Average     *float64 `json:"average,omitempty"`
	RatingCount int      `json:"rating_count"`
	MyScore     *float64 `json:"my_score,omitempty"`
	Rank        int      `json:"rank,omitempty"` // 0 while unrated; tied averages share a rank
}

// Scoreboard ranks pizzas by average score, highest first. Unrated pizzas
// follow in their original order. MyScore is filled for viewerUID when set.
func Scoreboard(pizzas []models.Pizza, ratings []models.Rating, viewerUID string) []PizzaScore {
	rows := make([]PizzaScore, 0, len(pizzas))
	for _, p := range pizzas {
		row := PizzaScore{
			PizzaID:     p.ID,
			Name:        p.Name,
			RatingCount: RatingCountForPizza(ratings, p.ID),
		}
		if avg, ok := AverageScoreForPizza(ratings, p.ID); ok {
			row.Average = &avg
		}
		if viewerUID != "" {
			if mine, ok := UserScoreForPizza(ratings, p.ID, viewerUID); ok {
				row.MyScore = &mine
			}
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Average, rows[j].Average
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return *a > *b
	})

	rank := 0
	for i := range rows {
		if rows[i].Average == nil {
			break
		}
		if i == 0 || *rows[i].Average != *rows[i-1].Average {
			rank = i + 1
		}
		rows[i].Rank = rank
	}
	return rows
}
