// Command blindbid runs the blind bid sortition tooling.
//
// # Commands
//
// setup: compiles the bid circuit, generates its parameters with the
// configured backend, stores them in the artifact cache and writes the
// artifacts manifest.
//
// demo: fills a bid tree with random bids, proves the score of one of them
// for a round and verifies the proof, then checks the same proof is rejected
// for another round.
//
// verify: verifies an encoded proof against its encoded public inputs with
// the verifying key of the manifest.
//
// # Usage
//
//	go run ./cmd/blindbid --config=blindbid.yaml setup
//	go run ./cmd/blindbid --manifest=artifacts.yaml demo --bids=16 --round=42 --out=.
//	go run ./cmd/blindbid --manifest=artifacts.yaml verify proof.bin inputs.bin
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/consensys/gnark/logger"
	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/vocdoni/blindbid/backend"
	"github.com/vocdoni/blindbid/bid"
	"github.com/vocdoni/blindbid/circuits"
	"github.com/vocdoni/blindbid/config"
	"github.com/vocdoni/blindbid/crypto/pedersen"
	"github.com/vocdoni/blindbid/log"
	"github.com/vocdoni/blindbid/prover"
	"github.com/vocdoni/blindbid/state"
	"github.com/vocdoni/blindbid/types"
	"github.com/vocdoni/blindbid/util"
	"github.com/vocdoni/blindbid/verifier"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Path to YAML config file")
		manifestPath = flag.String("manifest", "artifacts.yaml", "Path of the artifacts manifest")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] setup|demo|verify [args]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	log.Init(cfg.LogLevel, cfg.LogOutput, nil)
	logger.Set(*log.Logger())
	if cfg.ArtifactsDir != "" {
		circuits.BaseDir = cfg.ArtifactsDir
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	switch args[0] {
	case "setup":
		err = runSetup(cfg, *manifestPath)
	case "demo":
		err = runDemo(ctx, cfg, *manifestPath, args[1:])
	case "verify":
		err = runVerify(ctx, *manifestPath, args[1:])
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", args[0], err)
	}
}

func runSetup(cfg *config.Config, manifestPath string) error {
	b, err := backend.ByName(cfg.Backend)
	if err != nil {
		return err
	}
	start := time.Now()
	params, err := prover.Setup(b)
	if err != nil {
		return err
	}
	ccs, pk, vk, err := params.Export()
	if err != nil {
		return err
	}
	m := &config.ArtifactsManifest{Backend: cfg.Backend}
	for _, a := range []struct {
		content []byte
		hash    *types.HexBytes
	}{
		{ccs, &m.CircuitHash},
		{pk, &m.ProvingKeyHash},
		{vk, &m.VerifyingKeyHash},
	} {
		stored, err := circuits.Store(a.content)
		if err != nil {
			return err
		}
		*a.hash = stored.Hash
	}
	if err := m.Write(manifestPath); err != nil {
		return err
	}
	log.Infow("bid circuit setup done",
		"backend", cfg.Backend,
		"took", time.Since(start).String(),
		"manifest", manifestPath)
	fmt.Printf("circuit:       %s\nproving key:   %s\nverifying key: %s\n",
		m.CircuitHash, m.ProvingKeyHash, m.VerifyingKeyHash)
	return nil
}

func loadParams(ctx context.Context, manifestPath string, verifyOnly bool) (*backend.Params, error) {
	m, err := config.ReadArtifactsManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	b, err := backend.ByName(m.Backend)
	if err != nil {
		return nil, err
	}
	artifacts, err := m.CircuitArtifacts(verifyOnly)
	if err != nil {
		return nil, err
	}
	return backend.LoadArtifacts(ctx, b, artifacts)
}

func runDemo(ctx context.Context, cfg *config.Config, manifestPath string, args []string) error {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	var (
		nBids = fs.Int("bids", 8, "Number of bids added to the tree")
		round = fs.Uint64("round", 20, "Round height proved")
		start = fs.Uint64("start", 10, "First eligible round of the bids")
		end   = fs.Uint64("end", 1000, "End (excluded) of the eligibility window")
		out   = fs.String("out", "", "Directory where proof.bin and inputs.bin are written")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *nBids < 1 {
		return fmt.Errorf("at least one bid is needed")
	}
	params, err := loadParams(ctx, manifestPath, false)
	if err != nil {
		return err
	}
	database, err := cfg.OpenDatabase()
	if err != nil {
		return err
	}
	tree, err := state.New(database)
	if err != nil {
		database.Close()
		return err
	}
	defer tree.Close()

	window := bid.EligibilityWindow{Start: *start, End: *end}
	sealKey := babyjub.NewRandPrivKey().Public().Point()
	var (
		owned  *bid.Record
		secret *big.Int
	)
	for i := range *nBids {
		value := uint64(util.RandomInt(int(cfg.Limits.Minimum), int(cfg.Limits.Maximum)+1))
		o := bid.Opening{Value: value, Blinder: util.RandomBelow(pedersen.Order())}
		s := util.RandomFieldElement()
		record, err := bid.New(cfg.Limits, value, o.Blinder, s, window, babyjub.NewRandPrivKey().Public())
		if err != nil {
			return err
		}
		sealed, err := bid.Seal(o, sealKey, util.RandomFieldElement())
		if err != nil {
			return err
		}
		position, err := tree.Add(record, sealed)
		if err != nil {
			return err
		}
		log.Debugw("bid added", "position", position, "commitment", record.Commitment.String())
		if i == *nBids/2 {
			owned, secret = record, s
		}
	}

	// the bidder recovers the opening from the published sealed opening
	sealed, err := tree.SealedOpening(owned)
	if err != nil {
		return err
	}
	opening, err := sealed.Open(sealKey)
	if err != nil {
		return err
	}

	snapshot, err := tree.Snapshot()
	if err != nil {
		return err
	}
	path, err := state.BuildInclusionWitness(owned.Commitment, snapshot)
	if err != nil {
		return err
	}
	seed := util.RandomFieldElement()
	proveStart := time.Now()
	proof, inputs, err := prover.Prove(params, &prover.Request{
		Limits:  cfg.Limits,
		Record:  owned,
		Opening: *opening,
		Secret:  secret,
		Seed:    seed,
		Round:   *round,
		Path:    path,
	})
	if err != nil {
		return err
	}
	log.Infow("bid proof generated",
		"round", *round,
		"score", inputs.Score.String(),
		"took", time.Since(proveStart).String())

	if err := verifier.Verify(params, proof, inputs); err != nil {
		return fmt.Errorf("proof rejected for its own round: %w", err)
	}
	shifted := *inputs
	shifted.RoundHeight++
	if err := verifier.Verify(params, proof, &shifted); err == nil {
		return fmt.Errorf("proof accepted for round %d", shifted.RoundHeight)
	}
	proofData, err := proof.Encode()
	if err != nil {
		return err
	}
	if *out != "" {
		inputsData, err := inputs.Encode()
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(*out, "proof.bin"), proofData, 0o644); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(*out, "inputs.bin"), inputsData, 0o644); err != nil {
			return err
		}
	}
	fmt.Printf("root:  %s\nscore: %s\nproof: %d bytes, valid for round %d only\n",
		inputs.MerkleRoot, inputs.Score, len(proofData), inputs.RoundHeight)
	return nil
}

func runVerify(ctx context.Context, manifestPath string, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("expected the proof and public inputs files")
	}
	proofData, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	inputsData, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	params, err := loadParams(ctx, manifestPath, true)
	if err != nil {
		return err
	}
	if err := verifier.VerifyEncoded(params, proofData, inputsData); err != nil {
		return err
	}
	fmt.Println("valid")
	return nil
}
