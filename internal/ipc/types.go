package ipc

import "hakimi/internal/api"

// StartRequest triggers daemon workflow startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops daemon workflow.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// QueueItem mirrors the HTTP API queue DTO for IPC callers.
type QueueItem = api.QueueItem

// StageHealth describes readiness of a workflow stage.
type StageHealth = api.StageHealth

// DependencyStatus describes availability of an external tool.
type DependencyStatus = api.DependencyStatus

// LogEvent mirrors the HTTP API log DTO for IPC callers.
type LogEvent = api.LogEvent

// StatusLine is a labelled severity/detail pair for status displays.
type StatusLine = api.StatusLine

// DependencySummary aggregates dependency readiness for status displays.
type DependencySummary = api.DependencySummary

// StatusResponse represents combined daemon/workflow status information.
// SystemChecks, OutputPaths, and DependencySummary are filled in by the
// CLI status snapshot, not sent by the daemon.
type StatusResponse struct {
	Running           bool               `json:"running"`
	PID               int                `json:"pid"`
	QueueStats        map[string]int     `json:"queue_stats"`
	LastError         string             `json:"last_error"`
	LastItem          *QueueItem         `json:"last_item"`
	LockPath          string             `json:"lock_path"`
	QueueDBPath       string             `json:"queue_db_path"`
	StageHealth       []StageHealth      `json:"stage_health"`
	Dependencies      []DependencyStatus `json:"dependencies"`
	SystemChecks      []StatusLine       `json:"system_checks,omitempty"`
	OutputPaths       []StatusLine       `json:"output_paths,omitempty"`
	DependencySummary DependencySummary  `json:"dependency_summary"`
}

// EnqueueRequest registers a new meme need with the daemon.
type EnqueueRequest struct {
	Need  string `json:"need"`
	Title string `json:"title"`
	Tags  string `json:"tags"`
}

// EnqueueResponse returns the queued item.
type EnqueueResponse struct {
	Item QueueItem `json:"item"`
}

// QueueListRequest filters queue listing by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueDescribeRequest fetches a single queue item by id.
type QueueDescribeRequest struct {
	ID int64 `json:"id"`
}

// QueueDescribeResponse contains a single queue entry.
type QueueDescribeResponse struct {
	Item QueueItem `json:"item"`
}

// QueueClearRequest removes all items.
type QueueClearRequest struct{}

// QueueClearResponse reports number of removed entries.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearFailedRequest removes failed items.
type QueueClearFailedRequest struct{}

// QueueClearFailedResponse reports number of removed entries.
type QueueClearFailedResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearCompletedRequest removes completed items.
type QueueClearCompletedRequest struct{}

// QueueClearCompletedResponse reports number of removed entries.
type QueueClearCompletedResponse struct {
	Removed int64 `json:"removed"`
}

// QueueResetRequest resets in-flight items to the start of their stage.
type QueueResetRequest struct{}

// QueueResetResponse reports number of items reset.
type QueueResetResponse struct {
	Updated int64 `json:"updated"`
}

// QueueRetryRequest retries failed and review items. An empty list
// means every eligible item.
type QueueRetryRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRetryResponse reports number of retried items.
type QueueRetryResponse struct {
	Updated int64 `json:"updated"`
}

// QueueRemoveRequest removes specific items by id.
type QueueRemoveRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRemoveResponse reports number of removed entries.
type QueueRemoveResponse struct {
	Removed int64 `json:"removed"`
}

// LogsRequest fetches structured log events from the daemon stream.
// Since is the last sequence already seen; zero starts from the oldest
// buffered event unless Tail is set, which returns the newest Limit
// events instead. Follow blocks up to WaitMillis for new events.
type LogsRequest struct {
	Since      uint64 `json:"since"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	Tail       bool   `json:"tail"`
	WaitMillis int    `json:"wait_millis"`
}

// LogsResponse returns log events and the next resume cursor.
type LogsResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    string   `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalItems       int      `json:"total_items"`
	Error            string   `json:"error"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// QueueHealthRequest fetches aggregate diagnostics.
type QueueHealthRequest struct{}

// QueueHealthResponse reports queue health information.
type QueueHealthResponse struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	Review     int `json:"review"`
	Completed  int `json:"completed"`
}
