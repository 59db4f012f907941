package circuits

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vocdoni/blindbid/log"
	"github.com/vocdoni/blindbid/types"
)

// CheckHashes determines if the hashes of the artifacts are checked when
// they are loaded or downloaded. It is disabled by setting the
// BLINDBID_CHECK_HASHES environment variable to false or 0.
var CheckHashes = true

// BaseDir is the path of the artifact cache. Artifacts not found there are
// downloaded and stored in it. Defaults to the BLINDBID_ARTIFACTS_DIR env
// var or a directory in the user cache.
var BaseDir string

func init() {
	if checkHashes := os.Getenv("BLINDBID_CHECK_HASHES"); checkHashes != "" {
		if strings.ToLower(checkHashes) == "false" || checkHashes == "0" {
			CheckHashes = false
		}
	}
	if dir := os.Getenv("BLINDBID_ARTIFACTS_DIR"); dir != "" {
		BaseDir = dir
		return
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		log.Warnf("unable to access user home directory, using temporary directory: %v", err)
		BaseDir = filepath.Join(os.TempDir(), "blindbid-artifacts")
	} else {
		BaseDir = filepath.Join(home, ".cache", "blindbid-artifacts")
	}
}

// Artifact is a content addressed file of the artifact cache: a compiled
// circuit, a proving key or a verifying key. Hash is the sha256 of the
// content and the name of the file in the cache.
type Artifact struct {
	RemoteURL string
	Hash      types.HexBytes
	Content   types.HexBytes
}

// Store writes content to the artifact cache and returns the artifact.
func Store(content []byte) (*Artifact, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty artifact")
	}
	hash := sha256.Sum256(content)
	if err := os.MkdirAll(BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating the base directory: %w", err)
	}
	path := filepath.Join(BaseDir, hex.EncodeToString(hash[:]))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return nil, fmt.Errorf("error writing artifact %s: %w", path, err)
	}
	log.Debugw("artifact stored", "path", path, "size", len(content))
	return &Artifact{Hash: hash[:], Content: content}, nil
}

// Load fills the artifact content from the local cache, downloading it
// first from RemoteURL when it is not cached. The content hash is checked
// unless CheckHashes is disabled.
func (k *Artifact) Load(ctx context.Context) error {
	if len(k.Content) != 0 {
		return nil
	}
	if len(k.Hash) == 0 {
		return fmt.Errorf("artifact hash not provided")
	}
	content, err := load(k.Hash)
	if err != nil {
		return err
	}
	if content == nil {
		if k.RemoteURL == "" {
			return fmt.Errorf("artifact %x not found in %s and remote url not provided", []byte(k.Hash), BaseDir)
		}
		if err := k.Download(ctx); err != nil {
			return err
		}
		if content, err = load(k.Hash); err != nil {
			return err
		}
		if content == nil {
			return fmt.Errorf("no content found for artifact %x", []byte(k.Hash))
		}
	}
	k.Content = content
	return nil
}

// Download fetches the artifact from RemoteURL into the local cache.
func (k *Artifact) Download(ctx context.Context) error {
	if k.RemoteURL == "" {
		return fmt.Errorf("remote url not provided")
	}
	if err := os.MkdirAll(BaseDir, 0o755); err != nil {
		return fmt.Errorf("error creating the base directory: %w", err)
	}
	return downloadAndStore(ctx, k.Hash, k.RemoteURL)
}

// CircuitArtifacts groups the artifacts of a circuit: its compiled
// definition, proving key and verifying key. Any of them may be nil.
type CircuitArtifacts struct {
	circuitDefinition *Artifact
	provingKey        *Artifact
	verifyingKey      *Artifact
}

// NewCircuitArtifacts creates a new CircuitArtifacts with the artifacts
// provided.
func NewCircuitArtifacts(circuit, provingKey, verifyingKey *Artifact) *CircuitArtifacts {
	return &CircuitArtifacts{
		circuitDefinition: circuit,
		provingKey:        provingKey,
		verifyingKey:      verifyingKey,
	}
}

func (ca *CircuitArtifacts) each(fn func(name string, a *Artifact) error) error {
	for _, a := range []struct {
		name     string
		artifact *Artifact
	}{
		{"circuit definition", ca.circuitDefinition},
		{"proving key", ca.provingKey},
		{"verifying key", ca.verifyingKey},
	} {
		if a.artifact == nil {
			continue
		}
		if err := fn(a.name, a.artifact); err != nil {
			return fmt.Errorf("error loading %s: %w", a.name, err)
		}
	}
	return nil
}

// LoadAll loads every artifact into memory.
func (ca *CircuitArtifacts) LoadAll(ctx context.Context) error {
	return ca.each(func(_ string, a *Artifact) error { return a.Load(ctx) })
}

// DownloadAll downloads every artifact with a remote url into the cache.
func (ca *CircuitArtifacts) DownloadAll(ctx context.Context) error {
	return ca.each(func(_ string, a *Artifact) error {
		if a.RemoteURL == "" {
			return nil
		}
		return a.Download(ctx)
	})
}

// CircuitDefinition returns the content of the circuit definition, nil if
// it is not loaded.
func (ca *CircuitArtifacts) CircuitDefinition() types.HexBytes {
	if ca.circuitDefinition == nil {
		return nil
	}
	return ca.circuitDefinition.Content
}

// ProvingKey returns the content of the proving key, nil if it is not
// loaded.
func (ca *CircuitArtifacts) ProvingKey() types.HexBytes {
	if ca.provingKey == nil {
		return nil
	}
	return ca.provingKey.Content
}

// VerifyingKey returns the content of the verifying key, nil if it is not
// loaded.
func (ca *CircuitArtifacts) VerifyingKey() types.HexBytes {
	if ca.verifyingKey == nil {
		return nil
	}
	return ca.verifyingKey.Content
}

func checkHash(content, expected []byte) error {
	if !CheckHashes {
		return nil
	}
	if got := sha256.Sum256(content); !bytes.Equal(got[:], expected) {
		return fmt.Errorf("hash mismatch: expected %x, got %x", expected, got)
	}
	return nil
}

// load returns the cached content of hash, or nil content and nil error
// when it is not cached.
func load(hash []byte) ([]byte, error) {
	path := filepath.Join(BaseDir, hex.EncodeToString(hash))
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading file %s: %w", path, err)
	}
	if err := checkHash(content, hash); err != nil {
		return nil, fmt.Errorf("file %s: %w", path, err)
	}
	return content, nil
}

// downloadAndStore fetches fileURL into the local cache under the name of
// expectedHash. The content is written to a temporary file next to it and
// only renamed once its hash matches.
func downloadAndStore(ctx context.Context, expectedHash []byte, fileURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("invalid artifact url %q: %w", fileURL, err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", fileURL, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: http status %d", fileURL, res.StatusCode)
	}
	fd, err := os.CreateTemp(BaseDir, "download-*")
	if err != nil {
		return fmt.Errorf("create artifact file: %w", err)
	}
	defer os.Remove(fd.Name())
	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(fd, hasher), res.Body)
	if cerr := fd.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("download %s: %w", fileURL, err)
	}
	if computed := hasher.Sum(nil); CheckHashes && !bytes.Equal(computed, expectedHash) {
		return fmt.Errorf("hash mismatch: expected %x, got %x", expectedHash, computed)
	}
	path := filepath.Join(BaseDir, hex.EncodeToString(expectedHash))
	if err := os.Rename(fd.Name(), path); err != nil {
		return fmt.Errorf("store artifact: %w", err)
	}
	log.Debugw("artifact downloaded", "url", fileURL, "size", size)
	return nil
}
