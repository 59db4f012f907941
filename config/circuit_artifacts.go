package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/vocdoni/blindbid/circuits"
	"github.com/vocdoni/blindbid/types"
	"gopkg.in/yaml.v3"
)

// ArtifactsManifest records the content hashes of the bid circuit
// artifacts generated by a setup, so provers and verifiers can load them
// from the artifact cache or download them from BaseURL.
type ArtifactsManifest struct {
	Backend          string         `yaml:"backend"`
	BaseURL          string         `yaml:"base_url,omitempty"`
	CircuitHash      types.HexBytes `yaml:"circuit_hash"`
	ProvingKeyHash   types.HexBytes `yaml:"proving_key_hash,omitempty"`
	VerifyingKeyHash types.HexBytes `yaml:"verifying_key_hash"`
}

// ReadArtifactsManifest reads the YAML manifest at path.
func ReadArtifactsManifest(path string) (*ArtifactsManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifacts manifest: %w", err)
	}
	m := &ArtifactsManifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse artifacts manifest %s: %w", path, err)
	}
	if len(m.VerifyingKeyHash) == 0 {
		return nil, fmt.Errorf("artifacts manifest %s has no verifying key", path)
	}
	return m, nil
}

// Write stores the manifest as YAML at path.
func (m *ArtifactsManifest) Write(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// CircuitArtifacts returns the artifacts the manifest describes. Only the
// verifying key is included when verifyOnly is set.
func (m *ArtifactsManifest) CircuitArtifacts(verifyOnly bool) (*circuits.CircuitArtifacts, error) {
	vk, err := m.artifact(m.VerifyingKeyHash)
	if err != nil {
		return nil, err
	}
	if verifyOnly {
		return circuits.NewCircuitArtifacts(nil, nil, vk), nil
	}
	ccs, err := m.artifact(m.CircuitHash)
	if err != nil {
		return nil, err
	}
	pk, err := m.artifact(m.ProvingKeyHash)
	if err != nil {
		return nil, err
	}
	return circuits.NewCircuitArtifacts(ccs, pk, vk), nil
}

func (m *ArtifactsManifest) artifact(hash types.HexBytes) (*circuits.Artifact, error) {
	if len(hash) == 0 {
		return nil, nil
	}
	a := &circuits.Artifact{Hash: hash}
	if m.BaseURL != "" {
		u, err := url.JoinPath(m.BaseURL, fmt.Sprintf("%x", []byte(hash)))
		if err != nil {
			return nil, fmt.Errorf("invalid artifacts base url: %w", err)
		}
		a.RemoteURL = u
	}
	return a, nil
}
