// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command kratosd is a demo harness wiring the finality gadget, the
// sidechain registry, the purge state machine, the fraud verifier, and
// the key-value store together in one process, driven by a single
// local validator set rather than a real network. It exists to show
// how the pieces compose; a production deployment replaces the
// in-memory broadcaster and store with real transport and persistence.
package main

import (
	"crypto/ed25519"
	"flag"
	"fmt"
	"os"

	"github.com/kratos-labs/kratos/config"
	"github.com/kratos-labs/kratos/fraud"
	"github.com/kratos-labs/kratos/gadget"
	"github.com/kratos-labs/kratos/kvstore"
	"github.com/kratos-labs/kratos/primitives"
	"github.com/kratos-labs/kratos/purge"
	"github.com/kratos-labs/kratos/set"
	"github.com/kratos-labs/kratos/sidechain"
	"github.com/kratos-labs/kratos/warpsync"
)

// keySigner signs with an in-process Ed25519 key and implements
// gadget.Signer.
type keySigner struct {
	id   primitives.AccountId
	priv ed25519.PrivateKey
}

func (k *keySigner) Sign(domainSeparatedPayload []byte) primitives.Signature {
	raw := ed25519.Sign(k.priv, domainSeparatedPayload)
	var sig primitives.Signature
	copy(sig[:], raw)
	return sig
}

func (k *keySigner) ValidatorID() primitives.AccountId { return k.id }

// loggingBroadcaster prints every message it is asked to send instead
// of touching a real network, standing in for the integration layer's
// transport (spec.md §5, "Suspension points").
type loggingBroadcaster struct{}

func (b *loggingBroadcaster) Broadcast(msg gadget.FinalityMessage) {
	fmt.Printf("broadcast: kind=%s\n", msg.Kind)
}

func buildValidators(n int) (set.Set[primitives.AccountId], []*keySigner) {
	ids := make([]primitives.AccountId, 0, n)
	signers := make([]*keySigner, 0, n)
	for i := 0; i < n; i++ {
		id, priv, err := primitives.GenerateKey()
		if err != nil {
			fmt.Fprintln(os.Stderr, "generate key:", err)
			os.Exit(1)
		}
		ids = append(ids, id)
		signers = append(signers, &keySigner{id: id, priv: priv})
	}
	return set.Of(ids...), signers
}

func main() {
	network := flag.String("network", "local", "Parameter preset: mainnet or local")
	validatorCount := flag.Int("validators", 4, "Number of local validators to simulate")
	flag.Parse()

	params := config.DefaultParameters()
	if *network == "local" {
		params = config.LocalParameters()
	}

	store := kvstore.NewMemory()
	registry := sidechain.NewRegistry(params)
	purgeMachine := purge.NewMachine(registry, params)
	// Constructed but not driven here: a real deployment feeds
	// verifier.ApplyFraudProof from submitted fraud proofs over the
	// network, which this single-process demo never receives.
	_ = fraud.NewVerifier(registry, purgeMachine, params)

	validators, signers := buildValidators(*validatorCount)
	broadcaster := &loggingBroadcaster{}
	g := gadget.New(validators, signers[0], broadcaster, params.RoundTimeout, params.RoundHistoryCap, nil)

	fmt.Printf("kratosd demo: %d validators, network=%s\n", *validatorCount, *network)

	owner := signers[0].ValidatorID()
	chainID, err := registry.CreateSidechain(sidechain.CreateParams{
		Owner:        owner,
		Name:         "demo-sovereign",
		SecurityMode: sidechain.Sovereign,
		Deposit:      primitives.NewBalance(params.SovereignDeposit),
		CurrentBlock: 0,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "create sidechain:", err)
		os.Exit(1)
	}
	chain, _ := registry.Chain(chainID)
	_ = registry.PersistChain(store, chainID)
	fmt.Printf("created sidechain %d (%s), status=%s\n", chainID, chain.Name, chain.Status)

	g.OnBlockImported(1, primitives.HashBytes([]byte("genesis-child")))
	if target, ok := g.LastFinalized(); ok {
		fmt.Printf("imported block 1, last finalized=%d\n", target.Number)
	} else {
		fmt.Println("imported block 1, not yet finalized (single validator never reaches supermajority alone)")
	}

	sweepBlock := primitives.BlockNumber(params.InactivityThresholdBlocks + 1)
	touched := purgeMachine.AutoPurge(sweepBlock)
	fmt.Printf("auto_purge at block %d touched %v\n", sweepBlock, touched)

	audited := purgeMachine.AuditPurged(store, touched)
	fmt.Printf("audited %d purged chain record(s) to the store\n", audited)

	header, _ := warpsync.BuildSnapshot(nil, 0, sweepBlock)
	warpsync.PersistHeader(store, header)
	fmt.Printf("persisted warp-sync header at block %d, state_root=%x\n", sweepBlock, header.StateRoot)
}
