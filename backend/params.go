package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/blindbid/circuits"
	"github.com/vocdoni/blindbid/log"
)

// Params are the compiled constraint system and the keys of a circuit for
// one backend. They are never modified after construction, so a single
// instance can be shared by any number of concurrent provers and
// verifiers.
type Params struct {
	backend Backend
	ccs     constraint.ConstraintSystem
	keys    Keys
}

// Setup compiles the circuit and generates its keys.
func Setup(b Backend, circuit frontend.Circuit) (*Params, error) {
	startTime := time.Now()
	ccs, err := b.Compile(circuit)
	if err != nil {
		return nil, fmt.Errorf("compile circuit: %w", err)
	}
	log.Debugw("circuit compiled", "scheme", b.Scheme().String(),
		"constraints", ccs.GetNbConstraints(), "took", time.Since(startTime).String())
	keys, err := b.Setup(ccs)
	if err != nil {
		return nil, err
	}
	log.Infow("circuit setup done", "scheme", b.Scheme().String(), "took", time.Since(startTime).String())
	return &Params{backend: b, ccs: ccs, keys: keys}, nil
}

// Load reads parameters exported with Export. The constraint system and the
// proving key can be empty for verification only parameters.
func Load(b Backend, ccs, pk, vk []byte) (*Params, error) {
	if len(vk) == 0 {
		return nil, fmt.Errorf("verifying key not provided")
	}
	p := &Params{backend: b, keys: b.NewKeys()}
	if _, err := p.keys.Verifying.ReadFrom(bytes.NewReader(vk)); err != nil {
		return nil, fmt.Errorf("failed to read verifying key: %w", err)
	}
	if len(pk) == 0 {
		p.keys.Proving = nil
	} else if _, err := p.keys.Proving.ReadFrom(bytes.NewReader(pk)); err != nil {
		return nil, fmt.Errorf("failed to read proving key: %w", err)
	}
	if len(ccs) != 0 {
		p.ccs = b.NewCS()
		if _, err := p.ccs.ReadFrom(bytes.NewReader(ccs)); err != nil {
			return nil, fmt.Errorf("failed to read circuit definition: %w", err)
		}
	}
	return p, nil
}

// LoadArtifacts loads the artifacts, from the local cache or their remote
// url, and reads the parameters from them.
func LoadArtifacts(ctx context.Context, b Backend, artifacts *circuits.CircuitArtifacts) (*Params, error) {
	if err := artifacts.LoadAll(ctx); err != nil {
		return nil, err
	}
	return Load(b, artifacts.CircuitDefinition(), artifacts.ProvingKey(), artifacts.VerifyingKey())
}

// Export serializes the constraint system and the keys. Missing parts are
// returned empty.
func (p *Params) Export() (ccs, pk, vk []byte, err error) {
	if ccs, err = writeTo(p.ccs); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to write circuit definition: %w", err)
	}
	if pk, err = writeTo(p.keys.Proving); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to write proving key: %w", err)
	}
	if vk, err = writeTo(p.keys.Verifying); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to write verifying key: %w", err)
	}
	return ccs, pk, vk, nil
}

func writeTo(v io.WriterTo) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	buf := new(bytes.Buffer)
	if _, err := v.WriteTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Scheme returns the proving scheme of the parameters.
func (p *Params) Scheme() Scheme {
	return p.backend.Scheme()
}

// CanProve reports whether the parameters hold the constraint system and
// the proving key.
func (p *Params) CanProve() bool {
	return p.ccs != nil && p.keys.Proving != nil
}

// IsSolved checks the full witness satisfies the constraint system.
func (p *Params) IsSolved(full witness.Witness) error {
	if p.ccs == nil {
		return fmt.Errorf("parameters have no circuit definition")
	}
	return p.ccs.IsSolved(full)
}

// Prove proves the full witness.
func (p *Params) Prove(full witness.Witness) (*Proof, error) {
	if !p.CanProve() {
		return nil, fmt.Errorf("parameters cannot be used to prove")
	}
	startTime := time.Now()
	data, err := p.backend.Prove(p.ccs, p.keys.Proving, full)
	if err != nil {
		return nil, err
	}
	log.Debugw("proof generated", "scheme", p.Scheme().String(), "took", time.Since(startTime).String())
	return &Proof{Scheme: p.Scheme(), Data: data}, nil
}

// Verify checks the proof against the public witness.
func (p *Params) Verify(proof *Proof, public witness.Witness) error {
	if proof == nil {
		return fmt.Errorf("nil proof")
	}
	if proof.Scheme != p.Scheme() {
		return fmt.Errorf("proof scheme %s does not match parameters scheme %s", proof.Scheme, p.Scheme())
	}
	return p.backend.Verify(p.keys.Verifying, proof.Data, public)
}
