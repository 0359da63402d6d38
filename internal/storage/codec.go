package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"board_mirror/internal/model"
)

// TimeLayout is the date format used in persisted documents.
const TimeLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

type threadDoc struct {
	Title     string     `json:"title"`
	Text      string     `json:"text"`
	Date      string     `json:"date"`
	ImageLink string     `json:"img_link"`
	Replies   []replyDoc `json:"replies"`
}

type replyDoc struct {
	Text      string `json:"text"`
	Date      string `json:"date"`
	ImageLink string `json:"img_link"`
}

// FormatTime renders t in TimeLayout. The zero time renders as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// ParseTime is the inverse of FormatTime.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

func encodeThread(rec *model.ThreadRecord) ([]byte, error) {
	doc := threadDoc{
		Title:     rec.Title,
		Text:      rec.Text,
		Date:      FormatTime(rec.Date),
		ImageLink: rec.ImageLink,
		Replies:   make([]replyDoc, 0, len(rec.Replies)),
	}
	for _, r := range rec.Replies {
		doc.Replies = append(doc.Replies, replyDoc{
			Text:      r.Text,
			Date:      FormatTime(r.Date),
			ImageLink: r.ImageLink,
		})
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode thread: %w", err)
	}
	return data, nil
}

func decodeThread(data []byte) (*model.ThreadRecord, error) {
	var doc threadDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode thread: %w", err)
	}

	date, err := ParseTime(doc.Date)
	if err != nil {
		return nil, fmt.Errorf("decode thread: %w", err)
	}
	rec := &model.ThreadRecord{
		Title:     doc.Title,
		Text:      doc.Text,
		Date:      date,
		ImageLink: doc.ImageLink,
		Replies:   make([]model.Reply, 0, len(doc.Replies)),
	}
	for i, r := range doc.Replies {
		d, err := ParseTime(r.Date)
		if err != nil {
			return nil, fmt.Errorf("decode reply %d: %w", i, err)
		}
		rec.Replies = append(rec.Replies, model.Reply{Text: r.Text, Date: d, ImageLink: r.ImageLink})
	}
	return rec, nil
}
