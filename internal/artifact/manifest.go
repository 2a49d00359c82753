package artifact

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ManifestFile    = "manifest.yaml"
	ManifestVersion = 1
)

// Artifact kinds recorded in the manifest.
const (
	KindNGramVocab  = "ngram-vocab"
	KindNGramBigram = "ngram-bigram"
	KindLSTM        = "lstm-weights"
	KindJSON        = "json"
	KindSequences   = "sequences"
)

// Entry describes one file in the output directory.
type Entry struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	Bytes   int64  `yaml:"bytes"`
	SHA256  string `yaml:"sha256"`
	Records int    `yaml:"records,omitempty"`
}

// Manifest lists the artifacts of an output directory.
type Manifest struct {
	Version   int       `yaml:"version"`
	CreatedAt time.Time `yaml:"created_at"`
	Artifacts []Entry   `yaml:"artifacts"`
}

// Describe builds the manifest entry for data.
func Describe(name, kind string, data []byte, records int) Entry {
	sum := sha256.Sum256(data)

	return Entry{
		Name:    name,
		Kind:    kind,
		Bytes:   int64(len(data)),
		SHA256:  hex.EncodeToString(sum[:]),
		Records: records,
	}
}

// HashFile returns the hex SHA-256 and size of the file at path.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("artifact: %w", err)
	}
	defer f.Close()

	h := sha256.New()

	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("artifact: hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// LoadManifest reads dir's manifest. A missing manifest yields an empty one.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return &Manifest{Version: ManifestVersion}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("artifact: read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("artifact: parse manifest: %w", err)
	}

	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("artifact: manifest version %d, expected %d", m.Version, ManifestVersion)
	}

	slices.SortStableFunc(m.Artifacts, func(a, b Entry) int {
		return cmp.Compare(a.Name, b.Name)
	})

	return &m, nil
}

// Put adds e, replacing any entry with the same name. Entries stay sorted by name.
func (m *Manifest) Put(e Entry) {
	i, found := slices.BinarySearchFunc(m.Artifacts, e.Name, func(a Entry, name string) int {
		return cmp.Compare(a.Name, name)
	})

	if found {
		m.Artifacts[i] = e
		return
	}

	m.Artifacts = slices.Insert(m.Artifacts, i, e)
}

// Lookup returns the entry named name.
func (m *Manifest) Lookup(name string) (Entry, bool) {
	for _, e := range m.Artifacts {
		if e.Name == name {
			return e, true
		}
	}

	return Entry{}, false
}

// Save stamps the manifest and writes it atomically into dir.
func (m *Manifest) Save(dir string, now time.Time) error {
	m.Version = ManifestVersion
	m.CreatedAt = now.UTC().Truncate(time.Second)

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("artifact: encode manifest: %w", err)
	}

	return WriteFile(filepath.Join(dir, ManifestFile), data, int64(len(data)))
}
