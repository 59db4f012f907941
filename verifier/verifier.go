// Package verifier checks bid proofs against their public inputs. It holds
// no state: every call only reads the shared parameters.
package verifier

import (
	"fmt"

	"github.com/vocdoni/blindbid/backend"
	"github.com/vocdoni/blindbid/circuits/bidproof"
	"github.com/vocdoni/blindbid/log"
)

// ErrInvalidProof is returned for every proof that does not verify. It
// never tells which part of the bid statement failed.
var ErrInvalidProof = fmt.Errorf("invalid proof")

// Verify checks proof against the public inputs. It returns nil if the
// proof is valid, ErrMalformedPublicInputs if the inputs are not well
// formed and ErrInvalidProof otherwise.
func Verify(params *backend.Params, proof *backend.Proof, inputs *bidproof.PublicInputs) error {
	public, err := inputs.Witness()
	if err != nil {
		return err
	}
	if params == nil || proof == nil {
		return ErrInvalidProof
	}
	if err := params.Verify(proof, public); err != nil {
		log.Debugw("bid proof rejected",
			"round", inputs.RoundHeight,
			"scheme", proof.Scheme.String(),
			"error", err.Error())
		return ErrInvalidProof
	}
	return nil
}

// VerifyEncoded decodes the canonical encodings of a proof and its public
// inputs and verifies them.
func VerifyEncoded(params *backend.Params, proofData, inputsData []byte) error {
	inputs, err := bidproof.DecodePublicInputs(inputsData)
	if err != nil {
		return err
	}
	proof, err := backend.DecodeProof(proofData)
	if err != nil {
		log.Debugw("undecodable bid proof", "error", err.Error())
		return ErrInvalidProof
	}
	return Verify(params, proof, inputs)
}
