package prover

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"single-sign/shared"
)

// Message types for the proving-service websocket protocol.
type messageType string

const (
	msgProveRequest messageType = "prove_request"
	msgProveResult  messageType = "prove_result"
	msgProveError   messageType = "prove_error"
)

// proveRequest carries one attestation input plus the credential pair the
// backend authenticates with.
type proveRequest struct {
	Type        messageType             `json:"type"`
	RequestID   string                  `json:"request_id"`
	Environment string                  `json:"environment"`
	APIKey      string                  `json:"api_key"`
	Input       shared.AttestationInput `json:"input"`
}

type proveResponse struct {
	Type        messageType         `json:"type"`
	RequestID   string              `json:"request_id"`
	Attestation *shared.Attestation `json:"attestation,omitempty"`
	Error       string              `json:"error,omitempty"`
	// Fatal marks engine-level rejections (invalid signature, bad range,
	// non-canonical slice). Those never succeed on retry.
	Fatal bool `json:"fatal,omitempty"`
}

// RemoteProver submits attestation requests to an external proving service
// over WebSocket. Transport failures are retried with jittered exponential
// backoff; identical requests are deterministic on the backend, so
// at-least-once retry semantics are safe.
type RemoteProver struct {
	cfg    Config
	apiKey string
	logger *zap.Logger
}

// NewRemoteProver resolves the backend credential and returns a prover bound
// to cfg.Endpoint. A nil logger disables logging.
func NewRemoteProver(ctx context.Context, cfg Config, logger *zap.Logger) (*RemoteProver, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("remote prover requires an endpoint")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	apiKey, err := ResolveAPIKey(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &RemoteProver{cfg: cfg, apiKey: apiKey, logger: logger}, nil
}

// Prove submits the request and waits for the attestation. Fatal backend
// rejections return immediately; transport-level failures retry up to
// cfg.MaxRetries times before reporting ErrProofGeneration.
func (p *RemoteProver) Prove(ctx context.Context, in shared.AttestationInput) (*shared.Attestation, error) {
	attempts := p.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := retryDelay(attempt)
			p.logger.Debug("retrying proving request",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		att, retryable, err := p.proveOnce(ctx, in)
		if err == nil {
			return att, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
		p.logger.Warn("proving attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	}

	return nil, fmt.Errorf("%w: %v", ErrProofGeneration, lastErr)
}

func (p *RemoteProver) proveOnce(ctx context.Context, in shared.AttestationInput) (att *shared.Attestation, retryable bool, err error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.cfg.Endpoint, nil)
	if err != nil {
		return nil, true, fmt.Errorf("failed to connect to proving service: %v", err)
	}
	defer conn.Close()

	if p.cfg.RequestTimeout > 0 {
		deadline := time.Now().Add(p.cfg.RequestTimeout)
		if err := conn.SetReadDeadline(deadline); err != nil {
			return nil, true, err
		}
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return nil, true, err
		}
	}

	requestID := uuid.NewString()
	req := proveRequest{
		Type:        msgProveRequest,
		RequestID:   requestID,
		Environment: p.cfg.Environment,
		APIKey:      p.apiKey,
		Input:       in,
	}
	if err := conn.WriteJSON(req); err != nil {
		return nil, true, fmt.Errorf("failed to send proving request: %v", err)
	}

	p.logger.Info("proving request submitted",
		zap.String("request_id", requestID),
		zap.Stringer("range", in.DigestRange))

	for {
		var resp proveResponse
		if err := conn.ReadJSON(&resp); err != nil {
			return nil, true, fmt.Errorf("failed to read proving response: %v", err)
		}
		if resp.RequestID != requestID {
			// Stale message from a previous request on a reused connection.
			continue
		}

		switch resp.Type {
		case msgProveResult:
			if resp.Attestation == nil {
				return nil, true, fmt.Errorf("proving service returned empty attestation")
			}
			return resp.Attestation, false, nil
		case msgProveError:
			if resp.Fatal {
				return nil, false, fmt.Errorf("proving service rejected request: %s", resp.Error)
			}
			return nil, true, fmt.Errorf("proving service failed: %s", resp.Error)
		default:
			return nil, true, fmt.Errorf("unexpected message type %q from proving service", resp.Type)
		}
	}
}
