package schema

import (
	"fmt"

	"worker/internal/domain"
)

// Exclusive field sets. A field from one family appearing meaningfully set in
// a request of the other family is a routing error, never silently accepted.
// This disjointness is the central invariant of the validator.
var (
	videoOnlyFields = []string{"num_frames", "video_width", "video_height", "video_guidance_scale", "fps"}
	imageOnlyFields = []string{"width", "height", "refiner_inference_steps", "strength", "high_noise_frac"}
)

// VideoOnlyFields lists fields legal only under the text2video schema.
func VideoOnlyFields() []string {
	return append([]string(nil), videoOnlyFields...)
}

// ImageOnlyFields lists fields legal only under image-task schemas.
func ImageOnlyFields() []string {
	return append([]string(nil), imageOnlyFields...)
}

var schedulerNames = []string{"PNDM", "KLMS", "DDIM", "K_EULER", "DPMSolverMultistep", "K_EULER_ANCESTRAL", "DPMSolverSinglestep"}

func imageBaseFields() []Field {
	return []Field{
		{Name: "prompt", Kind: KindString, Required: true},
		{Name: "negative_prompt", Kind: KindString},
		{Name: "task_type", Kind: KindString},
		{Name: "height", Kind: KindInt, Default: 1024, Constraint: OneOfInt{Allowed: []int{512, 768, 1024, 1152, 1344, 1536}}},
		{Name: "width", Kind: KindInt, Default: 1024, Constraint: OneOfInt{Allowed: []int{512, 768, 1024, 1152, 1344, 1536}}},
		{Name: "seed", Kind: KindInt},
		{Name: "scheduler", Kind: KindString, Default: "DDIM", Constraint: OneOfString{Allowed: schedulerNames}},
		{Name: "num_inference_steps", Kind: KindInt, Default: 25, Constraint: IntRange{Min: 10, Max: 100}},
		{Name: "guidance_scale", Kind: KindFloat, Default: 7.5, Constraint: FloatRange{Min: 1.0, Max: 20.0}},
		{Name: "num_images", Kind: KindInt, Default: 1, Constraint: IntRange{Min: 1, Max: 3}},
		{Name: "user_id", Kind: KindString},
		{Name: "file_uid", Kind: KindString},
		{Name: "use_cloud_storage", Kind: KindBool, Default: false},
	}
}

func textToImageSchema() *Schema {
	fields := append(imageBaseFields(),
		Field{Name: "refiner_inference_steps", Kind: KindInt, Default: 50, Constraint: IntRange{Min: 10, Max: 100}},
		Field{Name: "strength", Kind: KindFloat, Default: 0.3, Constraint: FloatRange{Min: 0.1, Max: 1.0}},
		Field{Name: "high_noise_frac", Kind: KindFloat, Constraint: FloatRange{Min: 0.0, Max: 1.0}},
	)
	return New(domain.TaskTextToImage, fields...)
}

func imageToImageSchema() *Schema {
	fields := append(imageBaseFields(),
		Field{Name: "image_url", Kind: KindString, Required: true},
		Field{Name: "refiner_inference_steps", Kind: KindInt, Default: 50, Constraint: IntRange{Min: 10, Max: 100}},
		Field{Name: "strength", Kind: KindFloat, Default: 0.3, Constraint: FloatRange{Min: 0.1, Max: 1.0}},
	)
	return New(domain.TaskImageToImage, fields...)
}

func inpaintSchema() *Schema {
	fields := append(imageBaseFields(),
		Field{Name: "image_url", Kind: KindString, Required: true},
		Field{Name: "mask_url", Kind: KindString, Required: true},
	)
	return New(domain.TaskInpaint, fields...)
}

func textToVideoSchema() *Schema {
	return New(domain.TaskTextToVideo,
		Field{Name: "prompt", Kind: KindString, Required: true},
		Field{Name: "negative_prompt", Kind: KindString},
		Field{Name: "task_type", Kind: KindString},
		Field{Name: "seed", Kind: KindInt},
		Field{Name: "video_height", Kind: KindInt, Default: 480, Constraint: OneOfInt{Allowed: []int{480, 720}}},
		Field{Name: "video_width", Kind: KindInt, Default: 832, Constraint: OneOfInt{Allowed: []int{832, 1280}}},
		Field{Name: "num_frames", Kind: KindInt, Required: true, Constraint: IntRange{Min: 16, Max: 81}},
		Field{Name: "video_guidance_scale", Kind: KindFloat, Default: 5.0, Constraint: FloatRange{Min: 1.0, Max: 20.0}},
		Field{Name: "fps", Kind: KindInt, Default: 15, Constraint: IntRange{Min: 6, Max: 30}},
		Field{Name: "user_id", Kind: KindString},
		Field{Name: "file_uid", Kind: KindString},
		Field{Name: "use_cloud_storage", Kind: KindBool, Default: false},
	)
}

var taskSchemas = map[domain.TaskType]*Schema{
	domain.TaskTextToImage:  textToImageSchema(),
	domain.TaskImageToImage: imageToImageSchema(),
	domain.TaskInpaint:      inpaintSchema(),
	domain.TaskTextToVideo:  textToVideoSchema(),
}

// ForTask returns the schema governing the given task type.
func ForTask(task domain.TaskType) *Schema {
	s, ok := taskSchemas[task]
	if !ok {
		return taskSchemas[domain.TaskTextToImage]
	}
	return s
}

// VerifyDisjoint checks the exclusive field sets against every schema. The
// video schema must not declare any image-only field and image schemas must
// not declare any video-only field. Call it at process startup so a schema
// edit that reintroduces cross-task leakage fails loudly.
func VerifyDisjoint() error {
	for task, s := range taskSchemas {
		exclusive := videoOnlyFields
		if task == domain.TaskTextToVideo {
			exclusive = imageOnlyFields
		}
		for _, name := range exclusive {
			if s.Has(name) {
				return fmt.Errorf("schema for %s declares foreign field %q", task, name)
			}
		}
	}
	return nil
}
