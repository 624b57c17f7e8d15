package models

// QuotaRecord tracks the per-user message count for one calendar day.
// The _id is "{userId}_{YYYY-MM-DD}" so the counter resets by keying,
// not by a rollover job.
type QuotaRecord struct {
	ID     string `bson:"_id" json:"id"`
	UserID string `bson:"user_id" json:"user_id"`
	Date   string `bson:"date" json:"date"` // YYYY-MM-DD, UTC
	Count  int    `bson:"count" json:"count"`
}

// QuotaStatus is what the quota endpoints report to the UI.
type QuotaStatus struct {
	Count   int  `json:"count"`
	Limit   int  `json:"limit"`
	CanSend bool `json:"canSend"`
}
