package snapshots

import (
	"cmp"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
)

//go:embed fixture-schema.json
var fixtureSchema []byte

// ErrInvalidFixture is returned when a fixture document fails to parse or
// does not match the fixture schema.
var ErrInvalidFixture = errors.New("invalid fixture")

type fixtureDoc struct {
	Commits []fixtureCommit `yaml:"commits"`
}

type fixtureCommit struct {
	WireCommit `yaml:",inline"`

	Files []WireFile    `yaml:"files"`
	Diffs []fixtureDiff `yaml:"diffs"`
}

type fixtureDiff struct {
	Path   Text `yaml:"path"`
	Before Text `yaml:"before"`
	After  Text `yaml:"after"`
}

type diffKey struct {
	commit string
	path   string
}

// Fixture is an in-memory Source loaded from a YAML or JSON document. It
// returns the same *scene.Snapshot for repeated requests of one commit.
type Fixture struct {
	commits   []scene.CommitRecord
	snapshots map[string]*scene.Snapshot
	diffs     map[diffKey]Diff
}

// LoadFixture reads and parses a fixture file.
func LoadFixture(path string, logger *slog.Logger) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	return ParseFixture(data, logger)
}

// ParseFixture validates data against the fixture schema and builds a
// Fixture. JSON documents are accepted as YAML.
func ParseFixture(data []byte, logger *slog.Logger) (*Fixture, error) {
	logger = loggerOrDefault(logger)

	var generic any

	err := yaml.Unmarshal(data, &generic)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}

	err = validateFixture(generic)
	if err != nil {
		return nil, err
	}

	var doc fixtureDoc

	err = yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}

	fx := &Fixture{
		commits:   make([]scene.CommitRecord, 0, len(doc.Commits)),
		snapshots: make(map[string]*scene.Snapshot, len(doc.Commits)),
		diffs:     make(map[diffKey]Diff),
	}

	for i, fc := range doc.Commits {
		commit, ok := fc.Record()
		if !ok {
			logger.Warn("skipping fixture commit without id", "index", i)

			continue
		}

		if _, dup := fx.snapshots[commit.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate commit %q", ErrInvalidFixture, commit.ID)
		}

		fx.commits = append(fx.commits, commit)
		fx.snapshots[commit.ID] = scene.NewSnapshot(commit.ID, FileRecords(fc.Files, logger))

		for _, d := range fc.Diffs {
			fx.diffs[diffKey{commit: commit.ID, path: string(d.Path)}] = Diff{
				Before: string(d.Before),
				After:  string(d.After),
			}
		}
	}

	slices.SortStableFunc(fx.commits, func(a, b scene.CommitRecord) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})

	return fx, nil
}

func validateFixture(doc any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(fixtureSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		msgs = append(msgs, verr.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidFixture, strings.Join(msgs, "; "))
}

// Timeline returns the fixture commits ordered by timestamp.
func (f *Fixture) Timeline(_ context.Context) ([]scene.CommitRecord, error) {
	return slices.Clone(f.commits), nil
}

// Snapshot returns the snapshot of commitID.
func (f *Fixture) Snapshot(_ context.Context, commitID string) (*scene.Snapshot, error) {
	if commitID == "" {
		return nil, ErrEmptyCommitID
	}

	snap, ok := f.snapshots[commitID]
	if !ok {
		return nil, fmt.Errorf("snapshot %s: %w", commitID, ErrNotFound)
	}

	return snap, nil
}

// Diff returns the recorded diff of path at commitID.
func (f *Fixture) Diff(_ context.Context, commitID, path string) (Diff, error) {
	if commitID == "" {
		return Diff{}, ErrEmptyCommitID
	}

	if path == "" {
		return Diff{}, ErrEmptyPath
	}

	d, ok := f.diffs[diffKey{commit: commitID, path: path}]
	if !ok {
		return Diff{}, fmt.Errorf("diff %s %s: %w", commitID, path, ErrNotFound)
	}

	return d, nil
}
