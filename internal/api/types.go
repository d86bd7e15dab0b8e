package api

import "time"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queue entry in a transport-friendly format.
type QueueItem struct {
	ID             int64         `json:"id"`
	Need           string        `json:"need"`
	Title          string        `json:"title"`
	Tags           string        `json:"tags,omitempty"`
	Status         string        `json:"status"`
	ProcessingLane string        `json:"processingLane"`
	Progress       QueueProgress `json:"progress"`
	ErrorMessage   string        `json:"errorMessage"`
	CreatedAt      string        `json:"createdAt,omitempty"`
	UpdatedAt      string        `json:"updatedAt,omitempty"`
	AudioFile      string        `json:"audioFile,omitempty"`
	CoverFile      string        `json:"coverFile,omitempty"`
	VideoFile      string        `json:"videoFile,omitempty"`
	PublishRef     string        `json:"publishRef,omitempty"`
	ItemLogPath    string        `json:"itemLogPath,omitempty"`
	NeedsReview    bool          `json:"needsReview"`
	ReviewReason   string        `json:"reviewReason,omitempty"`
	Plan           *PlanSummary  `json:"plan,omitempty"`
	Track          *TrackDetails `json:"track,omitempty"`
}

// QueueProgress captures stage progress information for a queue entry.
type QueueProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// PlanSummary is the transport view of the stored music plan.
type PlanSummary struct {
	PromptEN  string   `json:"promptEn,omitempty"`
	PromptZH  string   `json:"promptZh,omitempty"`
	StyleTags []string `json:"styleTags,omitempty"`
	UseLyrics bool     `json:"useLyrics,omitempty"`
	Source    string   `json:"source,omitempty"`
}

// TrackDetails is the transport view of the stored generation result.
type TrackDetails struct {
	ClipID   string  `json:"clipId,omitempty"`
	Title    string  `json:"title,omitempty"`
	Tags     string  `json:"tags,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastItem    *QueueItem     `json:"lastItem,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
// Severity is filled by status presenters, not by the daemon itself.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// DependencySummary aggregates dependency readiness for status displays.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missingRequired"`
	MissingOptional int    `json:"missingOptional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}

// StatusLine is a labelled severity/detail pair for status displays.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// LogEvent is the transport representation of a streamed log line.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	Stage         string            `json:"stage,omitempty"`
	ItemID        int64             `json:"itemId,omitempty"`
	Lane          string            `json:"lane,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	Details       []DetailField     `json:"details,omitempty"`
}

// DetailField is a label/value pair attached to a log event.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// LogStreamResponse carries a batch of log events plus the resume cursor.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// QueueListResponse wraps a collection of queue items for API responses.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueItemResponse wraps a single queue item.
type QueueItemResponse struct {
	Item QueueItem `json:"item"`
}
