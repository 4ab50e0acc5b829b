package snapshots

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
)

// maxChurn bounds churn values so float-to-int conversion stays defined.
const maxChurn = math.MaxInt32

const yamlNullTag = "!!null"

// Number is a float that decodes from anything. Numbers and numeric strings
// keep their value; null, booleans, objects, non-numeric strings and
// non-finite values decode to zero.
type Number float64

// UnmarshalJSON implements json.Unmarshaler. It never fails.
func (n *Number) UnmarshalJSON(data []byte) error {
	var raw any

	err := json.Unmarshal(data, &raw)
	if err != nil {
		*n = 0

		return nil //nolint:nilerr // lenient by contract
	}

	*n = Number(toFloat(raw))

	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler. It never fails.
func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	var raw any

	err := node.Decode(&raw)
	if err != nil {
		*n = 0

		return nil //nolint:nilerr // lenient by contract
	}

	*n = Number(toFloat(raw))

	return nil
}

// Text is a string that decodes from anything; non-strings become "".
type Text string

// UnmarshalJSON implements json.Unmarshaler. It never fails.
func (s *Text) UnmarshalJSON(data []byte) error {
	var raw any

	err := json.Unmarshal(data, &raw)
	if err != nil {
		*s = ""

		return nil //nolint:nilerr // lenient by contract
	}

	str, _ := raw.(string)
	*s = Text(str)

	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler. It never fails.
func (s *Text) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode || node.Tag == yamlNullTag {
		*s = ""

		return nil
	}

	*s = Text(node.Value)

	return nil
}

func toFloat(raw any) float64 {
	var v float64

	switch x := raw.(type) {
	case float64:
		v = x
	case int:
		v = float64(x)
	case int64:
		v = float64(x)
	case uint64:
		v = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}

		v = parsed
	default:
		return 0
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	return v
}

// WireFile is one element of GET /snapshot/{id}.
type WireFile struct {
	Path         Text   `json:"path"          yaml:"path"`
	Churn        Number `json:"churn"         yaml:"churn"`
	HotspotScore Number `json:"hotspot_score" yaml:"hotspot_score"`
}

// WireCommit is one element of GET /timeline.
type WireCommit struct {
	ID        Text   `json:"id"        yaml:"id"`
	Timestamp Number `json:"timestamp" yaml:"timestamp"`
	Message   Text   `json:"message"   yaml:"message"`
}

// Record converts a wire file into a scene record. ok is false when the path
// is empty.
func (w WireFile) Record() (scene.FileRecord, bool) {
	path := strings.TrimSpace(string(w.Path))
	if path == "" {
		return scene.FileRecord{}, false
	}

	churn := math.Trunc(float64(w.Churn))
	churn = math.Max(0, math.Min(churn, maxChurn))

	rec := scene.FileRecord{
		Path:         path,
		Churn:        int(churn),
		HotspotScore: float64(w.HotspotScore),
	}

	return rec.Normalize(), true
}

// Record converts a wire commit. ok is false when the id is empty.
func (w WireCommit) Record() (scene.CommitRecord, bool) {
	id := strings.TrimSpace(string(w.ID))
	if id == "" {
		return scene.CommitRecord{}, false
	}

	return scene.CommitRecord{
		ID:        id,
		Timestamp: int64(w.Timestamp),
		Message:   strings.TrimSpace(string(w.Message)),
	}, true
}

// FileRecords converts wire files, skipping (and logging) records without a path.
func FileRecords(wire []WireFile, logger *slog.Logger) []scene.FileRecord {
	out := make([]scene.FileRecord, 0, len(wire))

	for i, w := range wire {
		rec, ok := w.Record()
		if !ok {
			logger.Warn("skipping file record without path", "index", i)

			continue
		}

		out = append(out, rec)
	}

	return out
}

// CommitRecords converts wire commits, skipping (and logging) commits without an id.
func CommitRecords(wire []WireCommit, logger *slog.Logger) []scene.CommitRecord {
	out := make([]scene.CommitRecord, 0, len(wire))

	for i, w := range wire {
		rec, ok := w.Record()
		if !ok {
			logger.Warn("skipping commit without id", "index", i)

			continue
		}

		out = append(out, rec)
	}

	return out
}

// DecodeFiles reads a JSON array of file records.
func DecodeFiles(r io.Reader, logger *slog.Logger) ([]scene.FileRecord, error) {
	var wire []WireFile

	err := json.NewDecoder(r).Decode(&wire)
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot: %w", ErrDecode, err)
	}

	return FileRecords(wire, loggerOrDefault(logger)), nil
}

// DecodeTimeline reads a JSON array of commits.
func DecodeTimeline(r io.Reader, logger *slog.Logger) ([]scene.CommitRecord, error) {
	var wire []WireCommit

	err := json.NewDecoder(r).Decode(&wire)
	if err != nil {
		return nil, fmt.Errorf("%w: timeline: %w", ErrDecode, err)
	}

	return CommitRecords(wire, loggerOrDefault(logger)), nil
}

// DecodeDiff reads a {before, after} document. Missing fields are empty.
func DecodeDiff(r io.Reader) (Diff, error) {
	var wire struct {
		Before Text `json:"before"`
		After  Text `json:"after"`
	}

	err := json.NewDecoder(r).Decode(&wire)
	if err != nil {
		return Diff{}, fmt.Errorf("%w: diff: %w", ErrDecode, err)
	}

	return Diff{Before: string(wire.Before), After: string(wire.After)}, nil
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}

	return logger
}
