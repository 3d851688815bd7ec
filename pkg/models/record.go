package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is an ISO-8601 local date-time without zone. Trailing zero
// fractions are dropped, so whole seconds encode as "2026-10-19T09:30:00".
const TimestampLayout = "2006-01-02T15:04:05.999999999"

// Record is the durable form of a Task.
type Record struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp reads a TimestampLayout value in the local zone.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

type recordFields Record

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		recordFields
		CreatedAt string `json:"createdAt"`
	}{
		recordFields: recordFields(r),
		CreatedAt:    FormatTimestamp(r.CreatedAt),
	})
}

func (r *Record) UnmarshalJSON(data []byte) error {
	aux := struct {
		*recordFields
		CreatedAt string `json:"createdAt"`
	}{
		recordFields: (*recordFields)(r),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	createdAt, err := ParseTimestamp(aux.CreatedAt)
	if err != nil {
		return err
	}
	r.CreatedAt = createdAt
	return nil
}

func (t Task) Record() Record {
	return Record{
		ID:          t.id,
		Title:       t.title,
		Description: t.description,
		Status:      t.status,
		CreatedAt:   t.createdAt,
	}
}

// FromRecord rehydrates a task through RestoreTask.
func FromRecord(r Record) (*Task, error) {
	t, err := RestoreTask(r.ID, r.Title, r.Description, r.Status, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("task %d: %w", r.ID, err)
	}
	return t, nil
}

func (t Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Record())
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	restored, err := FromRecord(r)
	if err != nil {
		return err
	}
	*t = *restored
	return nil
}
