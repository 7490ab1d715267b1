package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	log := newWithOutput(&buf, "quiz-engine", "debug", "")
	log.WithField("quiz_id", "quiz-1").Info("quiz served")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["message"] != "quiz served" || line["service"] != "quiz-engine" || line["quiz_id"] != "quiz-1" {
		t.Fatalf("unexpected log line %v", line)
	}
	if _, ok := line["timestamp"]; !ok {
		t.Fatalf("expected timestamp field, got %v", line)
	}
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	log := newWithOutput(&bytes.Buffer{}, "svc", "chatty", "text")
	if log.Logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level, got %v", log.Logger.GetLevel())
	}
}
