// Package model defines the domain types used across the application.
package model

import "time"

// ThreadRecord is the locally persisted copy of one board thread.
// Replies only ever grow; position in the slice identifies a reply.
type ThreadRecord struct {
	Title     string
	Text      string
	Date      time.Time
	ImageLink string
	Replies   []Reply
}

// Reply is a single post following the opening post of a thread.
type Reply struct {
	Text      string
	Date      time.Time
	ImageLink string
}

// ThreadSummary is a thread as listed on a catalog page.
type ThreadSummary struct {
	ID      int64
	Replies int
}

// CatalogPage is one page of the board catalog.
type CatalogPage struct {
	Number  int
	Threads []ThreadSummary
}

// SyncCursor records how far the catalog and archive passes have progressed.
type SyncCursor struct {
	CatalogModifiedAt   time.Time
	ArchiveModifiedAt   time.Time
	LastArchiveThreadID int64
	StorageRoot         string
}
