package ml

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"titanic-survival/internal/features"
)

// Artifact file names inside the model directory.
const (
	ModelFile        = "titanic_model.json"
	EncodersFile     = "label_encoders.json"
	ScalerFile       = "scaler.json"
	FeatureNamesFile = "feature_names.json"
)

var (
	// ErrArtifactMissing reports an artifact file that is absent or unreadable.
	ErrArtifactMissing = errors.New("model artifact missing or unreadable")
	// ErrModelUnavailable is returned by prediction when no model is loaded.
	ErrModelUnavailable = errors.New("model not loaded")
	// ErrFeatureOrderMismatch reports artifacts that disagree on the feature layout.
	ErrFeatureOrderMismatch = errors.New("feature ordering mismatch")
	// ErrArtifactSetMismatch reports artifact files written by different saves.
	ErrArtifactSetMismatch = errors.New("artifacts belong to different training runs")
)

// companionFiles are the artifacts whose digests the model file records.
var companionFiles = []string{EncodersFile, ScalerFile, FeatureNamesFile}

// ModelDecoder turns the serialized body of a model artifact into a Classifier.
type ModelDecoder func(data json.RawMessage) (Classifier, error)

var modelDecoders = map[string]ModelDecoder{
	RandomForestType: func(data json.RawMessage) (Classifier, error) {
		var f RandomForest
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		if err := f.Validate(); err != nil {
			return nil, err
		}
		return &f, nil
	},
}

// modelEnvelope is the on-disk shape of the model artifact. Digests holds the
// SHA-256 of every companion file written alongside the model.
type modelEnvelope struct {
	Type      string            `json:"model_type"`
	TrainedAt time.Time         `json:"trained_at"`
	Digests   map[string]string `json:"artifact_digests"`
	Model     json.RawMessage   `json:"model"`
}

// Artifacts is the immutable set of trained objects the serving path reads.
type Artifacts struct {
	Model        Classifier
	ModelType    string
	Encoders     *features.EncoderTable
	Scaler       *features.Scaler
	FeatureNames []string
	TrainedAt    time.Time

	vectorizer *features.Vectorizer
}

// NewArtifacts assembles and cross-checks a set of trained objects.
func NewArtifacts(model Classifier, modelType string, enc *features.EncoderTable, sc *features.Scaler, names []string) (*Artifacts, error) {
	if model == nil {
		return nil, errors.New("artifacts: model is nil")
	}
	if !slices.Equal(names, features.CanonicalOrder()) {
		return nil, fmt.Errorf("%w: got %v, expected %v", ErrFeatureOrderMismatch, names, features.CanonicalOrder())
	}
	if enc == nil || sc == nil {
		return nil, errors.New("artifacts: encoders and scaler are required")
	}
	for _, col := range features.CategoricalColumns() {
		if _, ok := enc.Encoder(col); !ok {
			return nil, fmt.Errorf("%w: no encoder for categorical column %s", ErrFeatureOrderMismatch, col)
		}
	}
	for _, col := range features.NumericColumns() {
		if _, ok := sc.Params[col]; !ok {
			return nil, fmt.Errorf("%w: no scaling parameters for column %s", ErrFeatureOrderMismatch, col)
		}
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if fc, ok := model.(featureCounter); ok && fc.FeatureCount() != len(names) {
		return nil, fmt.Errorf("%w: model expects %d features, names list %d", ErrFeatureOrderMismatch, fc.FeatureCount(), len(names))
	}

	vec, err := features.NewVectorizer(enc, sc, names)
	if err != nil {
		return nil, err
	}

	return &Artifacts{
		Model:        model,
		ModelType:    modelType,
		Encoders:     enc,
		Scaler:       sc,
		FeatureNames: slices.Clone(names),
		vectorizer:   vec,
	}, nil
}

// Vectorizer returns the encoder/scaler pipeline bound to FeatureNames.
func (a *Artifacts) Vectorizer() *features.Vectorizer {
	return a.vectorizer
}

// ArtifactCheck inspects a staged artifact set before it is published.
type ArtifactCheck func(staged *Artifacts) error

// LoadArtifacts reads all four artifacts from dir. A missing or unreadable
// file yields ErrArtifactMissing; inconsistent files yield
// ErrFeatureOrderMismatch, and files from different saves yield
// ErrArtifactSetMismatch.
func LoadArtifacts(dir string) (*Artifacts, error) {
	paths := make(map[string]string, 4)
	for _, name := range append([]string{ModelFile}, companionFiles...) {
		paths[name] = filepath.Join(dir, name)
	}

	a, err := loadArtifactFiles(paths)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("model_dir", dir).
		Str("model_type", a.ModelType).
		Int("features", len(a.FeatureNames)).
		Time("trained_at", a.TrainedAt).
		Msg("Model artifacts loaded")

	return a, nil
}

// loadArtifactFiles decodes and cross-checks the artifact set at paths,
// keyed by artifact file name.
func loadArtifactFiles(paths map[string]string) (*Artifacts, error) {
	var env modelEnvelope
	if _, err := readArtifact(paths[ModelFile], &env); err != nil {
		return nil, err
	}
	decode, ok := modelDecoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s has unsupported model type %q", ErrArtifactMissing, ModelFile, env.Type)
	}
	model, err := decode(env.Model)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrArtifactMissing, ModelFile, err)
	}

	var enc features.EncoderTable
	var sc features.Scaler
	var names []string
	targets := map[string]any{EncodersFile: &enc, ScalerFile: &sc, FeatureNamesFile: &names}

	digests := make(map[string]string, len(companionFiles))
	for _, name := range companionFiles {
		data, err := readArtifact(paths[name], targets[name])
		if err != nil {
			return nil, err
		}
		digests[name] = digest(data)
	}

	a, err := NewArtifacts(model, env.Type, &enc, &sc, names)
	if err != nil {
		return nil, err
	}

	for _, name := range companionFiles {
		recorded, ok := env.Digests[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s records no digest for %s", ErrArtifactSetMismatch, ModelFile, name)
		}
		if recorded != digests[name] {
			return nil, fmt.Errorf("%w: %s does not match %s", ErrArtifactSetMismatch, name, ModelFile)
		}
	}

	a.TrainedAt = env.TrainedAt
	return a, nil
}

func readArtifact(path string, v any) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactMissing, path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrArtifactMissing, path, err)
	}
	return data, nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SaveArtifacts writes the four artifacts into dir. Every file is first
// written to a temporary sibling; the staged set is reloaded and passed to
// each check, and only then renamed into place. Files already in dir are
// set aside during the renames and restored if any rename fails, so a
// failed save leaves the previous set untouched. The model file records the
// digests of the other three, which lets LoadArtifacts refuse a mixed set
// left behind by a crash.
func SaveArtifacts(dir string, a *Artifacts, checks ...ArtifactCheck) error {
	if a == nil || a.Model == nil {
		return errors.New("save artifacts: nothing to save")
	}

	modelBody, err := json.Marshal(a.Model)
	if err != nil {
		return fmt.Errorf("save artifacts: encode model: %w", err)
	}
	trainedAt := a.TrainedAt
	if trainedAt.IsZero() {
		trainedAt = time.Now().UTC()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save artifacts: create %s: %w", dir, err)
	}

	staged := make(map[string]string, 4)
	cleanup := func() {
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}

	companions := map[string]any{
		EncodersFile:     a.Encoders,
		ScalerFile:       a.Scaler,
		FeatureNamesFile: a.FeatureNames,
	}
	digests := make(map[string]string, len(companionFiles))
	for _, name := range companionFiles {
		data, err := json.MarshalIndent(companions[name], "", "  ")
		if err != nil {
			cleanup()
			return fmt.Errorf("save artifacts: encode %s: %w", name, err)
		}
		tmp, err := writeTemp(dir, name, data)
		if err != nil {
			cleanup()
			return fmt.Errorf("save artifacts: write %s: %w", name, err)
		}
		staged[name] = tmp
		digests[name] = digest(data)
	}

	env := modelEnvelope{Type: a.ModelType, TrainedAt: trainedAt, Digests: digests, Model: modelBody}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		cleanup()
		return fmt.Errorf("save artifacts: encode %s: %w", ModelFile, err)
	}
	tmp, err := writeTemp(dir, ModelFile, data)
	if err != nil {
		cleanup()
		return fmt.Errorf("save artifacts: write %s: %w", ModelFile, err)
	}
	staged[ModelFile] = tmp

	if len(checks) > 0 {
		reloaded, err := loadArtifactFiles(staged)
		if err != nil {
			cleanup()
			return fmt.Errorf("save artifacts: reload staged set: %w", err)
		}
		for _, check := range checks {
			if err := check(reloaded); err != nil {
				cleanup()
				return fmt.Errorf("save artifacts: %w", err)
			}
		}
	}

	if err := publish(dir, staged); err != nil {
		cleanup()
		return fmt.Errorf("save artifacts: %w", err)
	}

	log.Info().Str("model_dir", dir).Str("model_type", a.ModelType).Msg("Model artifacts saved")
	return nil
}

// publish renames the staged files into dir, model file first. Existing
// files are moved to backups beforehand and put back if a rename fails.
// Published entries are removed from staged.
func publish(dir string, staged map[string]string) error {
	order := append([]string{ModelFile}, companionFiles...)

	backups := make(map[string]string, len(order))
	restore := func() {
		for _, name := range order {
			target := filepath.Join(dir, name)
			if backup, ok := backups[name]; ok {
				if err := os.Rename(backup, target); err != nil {
					log.Error().Err(err).Str("file", target).Msg("Failed to restore previous artifact")
				}
				continue
			}
			if _, pending := staged[name]; !pending {
				_ = os.Remove(target)
			}
		}
	}

	for _, name := range order {
		target := filepath.Join(dir, name)
		if _, err := os.Lstat(target); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			restore()
			return fmt.Errorf("inspect %s: %w", name, err)
		}
		backup := staged[name] + ".prev"
		if err := os.Rename(target, backup); err != nil {
			restore()
			return fmt.Errorf("set aside %s: %w", name, err)
		}
		backups[name] = backup
	}

	for _, name := range order {
		if err := os.Rename(staged[name], filepath.Join(dir, name)); err != nil {
			restore()
			return fmt.Errorf("publish %s: %w", name, err)
		}
		delete(staged, name)
	}

	for _, backup := range backups {
		if err := os.RemoveAll(backup); err != nil {
			log.Warn().Err(err).Str("file", backup).Msg("Failed to remove previous artifact")
		}
	}
	return nil
}

func writeTemp(dir, name string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
