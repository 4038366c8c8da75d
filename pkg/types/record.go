package types

import (
	"time"
)

// TagColor is the color code carried by an OS tag annotation.
// The annotation format encodes it as a single digit appended to the
// tag name, separated by a newline.
type TagColor int

const (
	TagColorNone TagColor = iota
	TagColorGray
	TagColorGreen
	TagColorPurple
	TagColorBlue
	TagColorYellow
	TagColorRed
	TagColorOrange
)

var tagColorNames = map[TagColor]string{
	TagColorNone:   "none",
	TagColorGray:   "gray",
	TagColorGreen:  "green",
	TagColorPurple: "purple",
	TagColorBlue:   "blue",
	TagColorYellow: "yellow",
	TagColorRed:    "red",
	TagColorOrange: "orange",
}

func (c TagColor) String() string {
	if name, ok := tagColorNames[c]; ok {
		return name
	}
	return "none"
}

// TagAnnotation is a single decoded OS tag attached to a file.
// Position preserves the order tags appear in the annotation blob.
type TagAnnotation struct {
	Name     string   `json:"name"`
	Color    TagColor `json:"color"`
	Position int      `json:"position"`
}

// FileRecord represents a single filesystem entry (file or directory)
// stored in the index. Path is the identity key; Parent is the
// containing directory, empty for a crawl root. A non-empty Parent
// always names another indexed directory once its crawl completes.
type FileRecord struct {
	Path       string          `json:"path"`
	Parent     string          `json:"parent,omitempty"`
	Name       string          `json:"name"`
	IsDir      bool            `json:"is_dir"`
	Size       int64           `json:"size"`
	ModTime    time.Time       `json:"mod_time"`
	Kind       string          `json:"kind,omitempty"`
	Generation int64           `json:"generation"`
	Unreadable bool            `json:"unreadable,omitempty"`
	Tags       []TagAnnotation `json:"tags,omitempty"`
}

// TagCount summarizes one tag across the index for tag browsing.
type TagCount struct {
	Name  string   `json:"name"`
	Color TagColor `json:"color"`
	Count int64    `json:"count"`
}

// CrawlSnapshot is an immutable copy of crawl progress. Readers receive
// copies; only the crawler mutates the underlying state.
type CrawlSnapshot struct {
	ID         string    `json:"id"`
	Generation int64     `json:"generation"`
	Root       string    `json:"root"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Visited    int64     `json:"visited"`
	Queued     int64     `json:"queued"`
	Skipped    int64     `json:"skipped"`
	Errors     int64     `json:"errors"`
	Cancelled  bool      `json:"cancelled"`
	Completed  bool      `json:"completed"`
	Degraded   bool      `json:"degraded"`
}

// Active reports whether the snapshot describes a crawl that is still
// running.
func (s CrawlSnapshot) Active() bool {
	return s.ID != "" && s.FinishedAt.IsZero()
}

// StoreStats holds aggregate counts over the index.
type StoreStats struct {
	Files       int64 `json:"files"`
	Directories int64 `json:"directories"`
	Tags        int64 `json:"tags"`
	TaggedFiles int64 `json:"tagged_files"`
}
