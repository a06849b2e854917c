package pubsub

import (
	"testing"

	"github.com/qualitysquare/fieldops-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project, name, want string
	}{
		{"proj", "jobs", "projects/proj/topics/jobs"},
		{"proj", " jobs ", "projects/proj/topics/jobs"},
		{"proj", "projects/other/topics/jobs", "projects/other/topics/jobs"},
		{"", "jobs", ""},
		{"proj", "", ""},
	}
	for _, tc := range cases {
		if got := topicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("topicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	names := topicNames(config.PubSubConfig{JobsTopic: "jobs", VehiclesTopic: "  ", TimeclockTopic: "clock"})
	if len(names) != 2 || names[0] != "jobs" || names[1] != "clock" {
		t.Fatalf("unexpected names %v", names)
	}
}
