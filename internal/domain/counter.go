package domain

import "time"

const UserCounter = "user_counter"

type CounterStat struct {
	Name      string    `db:"name"`
	Count     int64     `db:"count"`
	UpdatedAt time.Time `db:"updated_at"`
}

type ReconcileResult struct {
	PreviousCount int64 `json:"previousCount"`
	NewCount      int64 `json:"newCount"`
	Changed       bool  `json:"changed"`
}
