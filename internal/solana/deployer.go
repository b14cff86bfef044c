// Package solana holds the chain integration seam for agent deployment.
// The registry only depends on the Deployer interface; the Simulator is
// the default implementation until real on-chain publication lands.
package solana

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/solace-protocol/acp/internal/registry/model"
	"go.uber.org/zap"
)

// ErrDeploymentFailed is returned by the Simulator when a simulated
// failure is injected.
var ErrDeploymentFailed = errors.New("deployment failed")

// Deployer publishes an agent on-chain and reports the resulting contract
// address and transaction id.
type Deployer interface {
	Deploy(ctx context.Context, agent *model.Agent, cfg model.DeploymentConfig) (*model.DeploymentResult, error)
}

// Simulator fakes on-chain deployment: it waits Latency, fails with
// probability FailRate, and otherwise fabricates a contract address and
// transaction id in the historical wire shape ("xxxxxxxxx...xxxxxxxxx",
// "tx_" + 12 chars).
type Simulator struct {
	Latency  time.Duration
	FailRate float64
	logger   *zap.Logger
}

// NewSimulator creates a Simulator with the given artificial latency and
// failure probability (0 disables injected failures).
func NewSimulator(latency time.Duration, failRate float64, logger *zap.Logger) *Simulator {
	return &Simulator{Latency: latency, FailRate: failRate, logger: logger}
}

// Deploy implements Deployer.
func (s *Simulator) Deploy(ctx context.Context, agent *model.Agent, cfg model.DeploymentConfig) (*model.DeploymentResult, error) {
	if s.Latency > 0 {
		select {
		case <-time.After(s.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if s.FailRate > 0 && randomFloat() < s.FailRate {
		s.logger.Warn("simulated deployment failure",
			zap.String("agent_id", agent.ID),
			zap.String("network", string(cfg.Network)),
		)
		return nil, ErrDeploymentFailed
	}

	result := &model.DeploymentResult{
		Success:         true,
		ContractAddress: fmt.Sprintf("%s...%s", randomBase36(9), randomBase36(9)),
		TransactionID:   "tx_" + randomBase36(12),
		DeployedAt:      time.Now().UTC(),
	}

	s.logger.Info("simulated deployment",
		zap.String("agent_id", agent.ID),
		zap.String("network", string(cfg.Network)),
		zap.String("contract_address", result.ContractAddress),
		zap.String("transaction_id", result.TransactionID),
	)

	return result, nil
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomBase36(n int) string {
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(base36))))
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken;
			// fall back to a fixed character rather than panic mid-deploy.
			out[i] = '0'
			continue
		}
		out[i] = base36[idx.Int64()]
	}
	return string(out)
}

func randomFloat() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<53))
	if err != nil {
		return 0
	}
	return float64(n.Int64()) / float64(int64(1)<<53)
}
