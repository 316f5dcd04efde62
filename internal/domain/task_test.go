package domain

import "testing"

func TestClassifyInpaintWinsWhenMaskAndImagePresent(t *testing.T) {
	raw := map[string]any{
		"prompt":    "restore the sky",
		"image_url": "https://example.com/a.png",
		"mask_url":  "https://example.com/m.png",
		"task_type": "text2img",
	}
	if got := Classify(raw); got != TaskInpaint {
		t.Fatalf("Classify = %q, want %q", got, TaskInpaint)
	}
}

func TestClassifyImageToImage(t *testing.T) {
	raw := map[string]any{
		"prompt":    "make it watercolor",
		"image_url": "https://example.com/a.png",
	}
	if got := Classify(raw); got != TaskImageToImage {
		t.Fatalf("Classify = %q, want %q", got, TaskImageToImage)
	}
}

func TestClassifyTextToVideo(t *testing.T) {
	cases := []map[string]any{
		{"prompt": "a cat walking", "num_frames": 49},
		{"prompt": "a cat walking", "num_frames": float64(49)},
		{"prompt": "a cat walking", "num_frames": int64(16), "task_type": "text2img"},
	}
	for i, raw := range cases {
		if got := Classify(raw); got != TaskTextToVideo {
			t.Fatalf("case %d: Classify = %q, want %q", i, got, TaskTextToVideo)
		}
	}
}

func TestClassifyDefaultsToTextToImage(t *testing.T) {
	cases := []map[string]any{
		{"prompt": "a red car"},
		{"prompt": "a red car", "num_frames": 0},
		{"prompt": "a red car", "num_frames": -3},
		{"prompt": "a red car", "num_frames": "49"},
		{"prompt": "a red car", "image_url": "   "},
		{"prompt": "a red car", "mask_url": "https://example.com/m.png"},
		{"prompt": "a red car", "task_type": "text2video"},
	}
	for i, raw := range cases {
		if got := Classify(raw); got != TaskTextToImage {
			t.Fatalf("case %d: Classify = %q, want %q", i, got, TaskTextToImage)
		}
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	raw := map[string]any{
		"prompt":     "a cat walking",
		"num_frames": 49,
	}
	first := Classify(raw)
	raw["task_type"] = string(first)
	if again := Classify(raw); again != first {
		t.Fatalf("Classify after echoing task_type = %q, want %q", again, first)
	}
	for i := 0; i < 5; i++ {
		if got := Classify(raw); got != first {
			t.Fatalf("repeat %d: Classify = %q, want %q", i, got, first)
		}
	}
}

func TestTaskTypeMediaType(t *testing.T) {
	if got := TaskTextToVideo.MediaType(); got != MediaTypeVideos {
		t.Fatalf("video MediaType = %q, want %q", got, MediaTypeVideos)
	}
	for _, task := range []TaskType{TaskTextToImage, TaskImageToImage, TaskInpaint} {
		if got := task.MediaType(); got != MediaTypeImages {
			t.Fatalf("%s MediaType = %q, want %q", task, got, MediaTypeImages)
		}
	}
}
