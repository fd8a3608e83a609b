package queue

import (
	"time"

	"croon/pkg/catalog"
)

// Entry is one durable batch job: an account, a reserved range of
// catalog items, and a batch size. Entries are created by Create,
// mutated only through Transition and RecordProgress, and never
// physically deleted while unfinished.
//
// NextItem is the queue-relative index of the next item to attempt:
// every attempted item, successful or not, moves it forward, so a
// paused run resumes exactly where it stopped and never re-submits an
// item. ItemsCompleted counts only successes and can therefore trail
// NextItem.
type Entry struct {
	ID              string        `json:"id"`
	AccountName     string        `json:"account_name"`
	TotalItems      int           `json:"total_items"`
	BatchSize       int           `json:"batch_size"`
	ItemRange       catalog.Range `json:"item_range"`
	ItemsCompleted  int           `json:"items_completed"`
	NextItem        int           `json:"next_item"`
	CurrentBatch    int           `json:"current_batch"`
	Status          Status        `json:"status"`
	ProgressPercent float64       `json:"progress_percent"`
	CreatedAt       time.Time     `json:"created_at"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
}

// BatchCount returns how many batches the entry's range partitions into.
func (e Entry) BatchCount() int {
	if e.BatchSize <= 0 {
		return 0
	}
	return (e.TotalItems + e.BatchSize - 1) / e.BatchSize
}

// progress returns items_completed / total_items in [0,1].
func (e Entry) progress() float64 {
	if e.TotalItems == 0 {
		return 0
	}
	return float64(e.ItemsCompleted) / float64(e.TotalItems)
}
