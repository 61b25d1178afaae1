package prover

import (
	"context"

	"go.uber.org/zap"

	"single-sign/engine"
	"single-sign/shared"
)

// LocalProver executes the attestation engine in-process. The seal it emits
// is a deterministic integrity tag, not a soundness proof: it binds journal
// to program identifier so the rest of the pipeline can be exercised without
// a proving backend. Production deployments use RemoteProver.
type LocalProver struct {
	logger *zap.Logger
}

// NewLocalProver returns a LocalProver. A nil logger disables logging.
func NewLocalProver(logger *zap.Logger) *LocalProver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalProver{logger: logger}
}

// Prove runs the engine and wraps its committed output in a dev-mode
// attestation. Engine failures (invalid signature, bad range, non-canonical
// slice) pass through unchanged: they are fatal for the request, not proving
// failures, and no attestation is emitted for them.
func (p *LocalProver) Prove(ctx context.Context, in shared.AttestationInput) (*shared.Attestation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.logger.Debug("attesting in-process",
		zap.String("signer", in.Signer.Hex()),
		zap.Stringer("range", in.DigestRange),
		zap.Int("buffer_len", len(in.TypedDataConcat)))

	out, err := engine.Attest(in)
	if err != nil {
		return nil, err
	}

	journal := engine.EncodeJournal(out)
	return &shared.Attestation{
		ProgramID: engine.ProgramID,
		Journal:   journal,
		Seal:      shared.DevModeSeal(engine.ProgramID, journal),
	}, nil
}
