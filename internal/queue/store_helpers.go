package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, need, title, tags, status, plan_json, result_json, audio_file, cover_file, video_file, publish_ref, item_log_path, error_message, created_at, updated_at, progress_stage, progress_percent, progress_message, last_heartbeat, review_reason"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		need             string
		title            sql.NullString
		tags             sql.NullString
		statusStr        string
		planJSON         sql.NullString
		resultJSON       sql.NullString
		audioFile        sql.NullString
		coverFile        sql.NullString
		videoFile        sql.NullString
		publishRef       sql.NullString
		itemLogPath      sql.NullString
		errorMessage     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		lastHeartbeatRaw sql.NullString
		reviewReason     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&need,
		&title,
		&tags,
		&statusStr,
		&planJSON,
		&resultJSON,
		&audioFile,
		&coverFile,
		&videoFile,
		&publishRef,
		&itemLogPath,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&lastHeartbeatRaw,
		&reviewReason,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		Need:            need,
		Title:           title.String,
		Tags:            tags.String,
		Status:          Status(statusStr),
		PlanJSON:        planJSON.String,
		ResultJSON:      resultJSON.String,
		AudioFile:       audioFile.String,
		CoverFile:       coverFile.String,
		VideoFile:       videoFile.String,
		PublishRef:      publishRef.String,
		ItemLogPath:     itemLogPath.String,
		ErrorMessage:    errorMessage.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
		ReviewReason:    reviewReason.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
