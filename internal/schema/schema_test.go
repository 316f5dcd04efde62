package schema

import (
	"testing"

	"worker/internal/domain"
)

func TestVerifyDisjoint(t *testing.T) {
	if err := VerifyDisjoint(); err != nil {
		t.Fatalf("VerifyDisjoint() = %v, want nil", err)
	}
}

func TestVideoSchemaDeclaresNoImageFields(t *testing.T) {
	s := ForTask(domain.TaskTextToVideo)
	for _, name := range ImageOnlyFields() {
		if s.Has(name) {
			t.Fatalf("text2video schema declares image-only field %q", name)
		}
	}
}

func TestImageSchemasDeclareNoVideoFields(t *testing.T) {
	for _, task := range []domain.TaskType{domain.TaskTextToImage, domain.TaskImageToImage, domain.TaskInpaint} {
		s := ForTask(task)
		for _, name := range VideoOnlyFields() {
			if s.Has(name) {
				t.Fatalf("%s schema declares video-only field %q", task, name)
			}
		}
	}
}

func TestConstraintNamesAndChecks(t *testing.T) {
	oneOf := OneOfInt{Allowed: []int{480, 720}}
	if !oneOf.Check(480) || oneOf.Check(481) {
		t.Fatalf("OneOfInt misclassified values")
	}
	if oneOf.Check("480") {
		t.Fatalf("OneOfInt accepted a string")
	}

	r := IntRange{Min: 10, Max: 100}
	if !r.Check(10) || !r.Check(100) || r.Check(9) || r.Check(101) {
		t.Fatalf("IntRange bounds are wrong")
	}

	fr := FloatRange{Min: 1.0, Max: 20.0}
	if !fr.Check(7.5) || fr.Check(0.5) {
		t.Fatalf("FloatRange bounds are wrong")
	}

	sched := OneOfString{Allowed: schedulerNames}
	if !sched.Check("DDIM") || sched.Check("ddim") {
		t.Fatalf("OneOfString should be case sensitive")
	}
	if sched.Name() == "" {
		t.Fatalf("constraint name should not be empty")
	}
}

func TestForTaskDefaults(t *testing.T) {
	s := ForTask(domain.TaskTextToImage)
	steps, ok := s.Field("num_inference_steps")
	if !ok || steps.Default != 25 {
		t.Fatalf("num_inference_steps default = %v, want 25", steps.Default)
	}
	guidance, _ := s.Field("guidance_scale")
	if guidance.Default != 7.5 {
		t.Fatalf("guidance_scale default = %v, want 7.5", guidance.Default)
	}
	scheduler, _ := s.Field("scheduler")
	if scheduler.Default != "DDIM" {
		t.Fatalf("scheduler default = %v, want DDIM", scheduler.Default)
	}

	v := ForTask(domain.TaskTextToVideo)
	fps, _ := v.Field("fps")
	if fps.Default != 15 {
		t.Fatalf("fps default = %v, want 15", fps.Default)
	}
	vh, _ := v.Field("video_height")
	if vh.Default != 480 {
		t.Fatalf("video_height default = %v, want 480", vh.Default)
	}
}
