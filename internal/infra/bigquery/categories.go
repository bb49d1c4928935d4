package bigquery

import "time"

type CategoryRow struct {
	CategoryID string    `bigquery:"category_id"`
	Name       string    `bigquery:"name"`
	Archived   bool      `bigquery:"archived"`
	CreatedTS  time.Time `bigquery:"created_ts"`
}
