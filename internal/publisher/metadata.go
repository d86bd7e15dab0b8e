package publisher

import (
	"fmt"
	"strings"

	"hakimi/internal/services/suno"
)

// titlePrefix brands every upload title.
const titlePrefix = "【哈基米】"

// TopicTags returns the fixed platform topic tags applied to every upload.
func TopicTags() []string {
	return []string{"哈基米", "鬼畜", "AI音乐"}
}

// Metadata is the upload form content handed to the external uploader.
type Metadata struct {
	Title       string
	Description string
	Tags        []string
}

// Compose builds the upload metadata for a finished track. The description
// records the originating request, the English music prompt, and the
// generation facts so the upload stays traceable to its inputs.
func Compose(need, promptEN, trackTitle string, duration float64) Metadata {
	title := strings.TrimSpace(trackTitle)
	if title == "" {
		title = suno.DefaultTitle
	}
	description := fmt.Sprintf(
		"自动生成的哈基米音乐。\n原始需求：%s\nPrompt EN: %s\n\nSuno 生成信息：\n- 曲名: %s\n- 时长: %.0f秒",
		strings.TrimSpace(need),
		strings.TrimSpace(promptEN),
		title,
		duration,
	)
	return Metadata{
		Title:       titlePrefix + title,
		Description: description,
		Tags:        TopicTags(),
	}
}
