package domain

import "strings"

// TaskType enumerates the four mutually exclusive generation modes.
type TaskType string

const (
	TaskTextToImage  TaskType = "text2img"
	TaskImageToImage TaskType = "img2img"
	TaskInpaint      TaskType = "inpaint"
	TaskTextToVideo  TaskType = "text2video"
)

// MediaType returns the status-store collection the task's output belongs to.
func (t TaskType) MediaType() string {
	if t == TaskTextToVideo {
		return MediaTypeVideos
	}
	return MediaTypeImages
}

const (
	MediaTypeImages = "images"
	MediaTypeVideos = "videos"
)

// Classify determines the task type of a raw request from field presence.
// Precedence is fixed and first match wins: a mask plus a source image means
// inpainting, a source image alone means image-to-image, a positive
// num_frames means video, everything else is text-to-image. An explicit
// task_type field in the request is advisory only; detection wins when the
// two disagree. Classify is pure and idempotent.
func Classify(raw map[string]any) TaskType {
	hasImage := hasText(raw, "image_url")
	hasMask := hasText(raw, "mask_url")

	switch {
	case hasImage && hasMask:
		return TaskInpaint
	case hasImage:
		return TaskImageToImage
	case positiveInt(raw, "num_frames"):
		return TaskTextToVideo
	default:
		return TaskTextToImage
	}
}

func hasText(raw map[string]any, key string) bool {
	v, ok := raw[key]
	if !ok {
		return false
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) != ""
}

func positiveInt(raw map[string]any, key string) bool {
	v, ok := raw[key]
	if !ok {
		return false
	}
	switch n := v.(type) {
	case int:
		return n > 0
	case int32:
		return n > 0
	case int64:
		return n > 0
	case float32:
		return n > 0
	case float64:
		return n > 0
	default:
		return false
	}
}
