package schema

import (
	"errors"
	"math"
	"strings"

	"worker/internal/domain"
)

// ValidatedRequest is a request after schema application: every declared
// field carries either the caller's checked value or the schema default.
// Pointer fields distinguish "unset" from a zero value. Values are passed by
// value into the lifecycle and never mutated afterwards.
type ValidatedRequest struct {
	Task domain.TaskType

	Prompt         string
	NegativePrompt string
	Seed           *int

	// Image-task knobs.
	Width                 int
	Height                int
	Scheduler             string
	NumInferenceSteps     int
	RefinerInferenceSteps int
	GuidanceScale         float64
	Strength              float64
	HighNoiseFrac         *float64
	NumImages             int
	ImageURL              string
	MaskURL               string

	// Video-task knobs.
	VideoWidth         int
	VideoHeight        int
	NumFrames          int
	VideoGuidanceScale float64
	FPS                int

	// Storage routing.
	UserID          string
	FileUID         string
	UseCloudStorage bool
}

// Validate applies the schema for the classified task type to a raw request.
// Unknown fields are ignored for forward compatibility. All field failures
// are collected and returned joined, so a caller can report every offending
// field at once; individual failures remain reachable through errors.As.
func Validate(raw map[string]any, task domain.TaskType) (*ValidatedRequest, error) {
	s := ForTask(task)
	values := make(map[string]any, len(s.fields))
	var errs []error

	for _, name := range s.Names() {
		field, _ := s.Field(name)
		rawValue, present := raw[name]
		if !present || rawValue == nil {
			if field.Required {
				errs = append(errs, &domain.MissingRequiredFieldError{Field: name})
				continue
			}
			values[name] = field.Default
			continue
		}
		coerced, ok := coerce(field.Kind, rawValue)
		if !ok {
			errs = append(errs, &domain.ValidationError{Field: name, Constraint: "expected " + field.Kind.String()})
			continue
		}
		if field.Constraint != nil && !field.Constraint.Check(coerced) {
			errs = append(errs, &domain.ValidationError{Field: name, Constraint: field.Constraint.Name()})
			continue
		}
		values[name] = coerced
	}

	// Cross-field invariant: no meaningfully-set field from the other
	// family's exclusive set may ride along on this request.
	foreign := videoOnlyFields
	if task == domain.TaskTextToVideo {
		foreign = imageOnlyFields
	}
	for _, name := range foreign {
		if meaningfullySet(raw, name) {
			errs = append(errs, &domain.CrossTaskParameterError{Field: name, Task: task})
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return build(task, values), nil
}

// Errs flattens a Validate error into its individual field failures.
func Errs(err error) []error {
	if err == nil {
		return nil
	}
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		return multi.Unwrap()
	}
	return []error{err}
}

func meaningfullySet(raw map[string]any, name string) bool {
	v, present := raw[name]
	if !present || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// coerce converts a loosely-typed request value to the declared kind. JSON
// decoding surfaces every number as float64, so whole-valued floats are
// accepted for int fields; strings are never coerced to numbers.
func coerce(kind Kind, v any) (any, bool) {
	switch kind {
	case KindString:
		s, ok := v.(string)
		return s, ok
	case KindBool:
		b, ok := v.(bool)
		return b, ok
	case KindInt:
		switch n := v.(type) {
		case int:
			return n, true
		case int32:
			return int(n), true
		case int64:
			return int(n), true
		case float64:
			if n == math.Trunc(n) {
				return int(n), true
			}
			return nil, false
		case float32:
			f := float64(n)
			if f == math.Trunc(f) {
				return int(f), true
			}
			return nil, false
		default:
			return nil, false
		}
	case KindFloat:
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		default:
			return nil, false
		}
	default:
		return nil, false
	}
}

func build(task domain.TaskType, values map[string]any) *ValidatedRequest {
	req := &ValidatedRequest{Task: task}

	req.Prompt = stringValue(values, "prompt")
	req.NegativePrompt = stringValue(values, "negative_prompt")
	req.UserID = stringValue(values, "user_id")
	req.FileUID = stringValue(values, "file_uid")
	req.UseCloudStorage = boolValue(values, "use_cloud_storage")
	if seed, ok := values["seed"].(int); ok {
		req.Seed = &seed
	}

	if task == domain.TaskTextToVideo {
		req.VideoWidth = intValue(values, "video_width")
		req.VideoHeight = intValue(values, "video_height")
		req.NumFrames = intValue(values, "num_frames")
		req.VideoGuidanceScale = floatValue(values, "video_guidance_scale")
		req.FPS = intValue(values, "fps")
		return req
	}

	req.Width = intValue(values, "width")
	req.Height = intValue(values, "height")
	req.Scheduler = stringValue(values, "scheduler")
	req.NumInferenceSteps = intValue(values, "num_inference_steps")
	req.RefinerInferenceSteps = intValue(values, "refiner_inference_steps")
	req.GuidanceScale = floatValue(values, "guidance_scale")
	req.Strength = floatValue(values, "strength")
	req.NumImages = intValue(values, "num_images")
	req.ImageURL = stringValue(values, "image_url")
	req.MaskURL = stringValue(values, "mask_url")
	if frac, ok := values["high_noise_frac"].(float64); ok {
		req.HighNoiseFrac = &frac
	}
	return req
}

func stringValue(values map[string]any, name string) string {
	s, _ := values[name].(string)
	return s
}

func intValue(values map[string]any, name string) int {
	n, _ := values[name].(int)
	return n
}

func floatValue(values map[string]any, name string) float64 {
	f, _ := values[name].(float64)
	return f
}

func boolValue(values map[string]any, name string) bool {
	b, _ := values[name].(bool)
	return b
}
