package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// MiningMetrics groups the prometheus instruments for the mining ledger. The
// RPC layer records outcomes; the engine itself stays metrics-free so it can
// run deterministically inside state transitions.
type MiningMetrics struct {
	stakes          *prometheus.CounterVec
	unstakes        prometheus.Counter
	slashes         prometheus.Counter
	claims          prometheus.Counter
	refunds         prometheus.Counter
	bonusMints      prometheus.Counter
	rejectedOps     *prometheus.CounterVec
	claimedTotal    prometheus.Counter
	activeIncentive prometheus.Gauge
}

var (
	miningOnce     sync.Once
	miningRegistry *MiningMetrics
)

// Mining returns the process-wide mining metrics registry, creating and
// registering the collectors on first use.
func Mining() *MiningMetrics {
	miningOnce.Do(func() {
		miningRegistry = &MiningMetrics{
			stakes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "mining_stakes_total",
				Help: "Count of NFT registrations by mode (single or batch).",
			}, []string{"mode"}),
			unstakes: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "mining_unstakes_total",
				Help: "Count of voluntary deregistrations.",
			}),
			slashes: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "mining_slashes_total",
				Help: "Count of stale registrations slashed.",
			}),
			claims: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "mining_claims_total",
				Help: "Count of reward claims paid out.",
			}),
			refunds: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "mining_refunds_total",
				Help: "Count of zero-participant refunds paid out.",
			}),
			bonusMints: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "mining_bonus_mints_total",
				Help: "Count of bonus NFTs minted at mining-time thresholds.",
			}),
			rejectedOps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "mining_rejected_operations_total",
				Help: "Count of mutating operations rejected, by operation.",
			}, []string{"op"}),
			claimedTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "mining_incentives_created_total",
				Help: "Count of incentive programs created.",
			}),
			activeIncentive: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "mining_known_incentives",
				Help: "Number of incentive programs created since process start.",
			}),
		}
		prometheus.MustRegister(
			miningRegistry.stakes,
			miningRegistry.unstakes,
			miningRegistry.slashes,
			miningRegistry.claims,
			miningRegistry.refunds,
			miningRegistry.bonusMints,
			miningRegistry.rejectedOps,
			miningRegistry.claimedTotal,
			miningRegistry.activeIncentive,
		)
	})
	return miningRegistry
}

// ObserveStake records a successful registration.
func (m *MiningMetrics) ObserveStake(mode string) {
	if m == nil {
		return
	}
	m.stakes.WithLabelValues(mode).Inc()
}

// ObserveUnstake records a successful deregistration.
func (m *MiningMetrics) ObserveUnstake() {
	if m == nil {
		return
	}
	m.unstakes.Inc()
}

// ObserveSlash records a successful slash.
func (m *MiningMetrics) ObserveSlash() {
	if m == nil {
		return
	}
	m.slashes.Inc()
}

// ObserveClaim records a reward payout, plus the bonus mint when one fired.
func (m *MiningMetrics) ObserveClaim(bonusMinted bool) {
	if m == nil {
		return
	}
	m.claims.Inc()
	if bonusMinted {
		m.bonusMints.Inc()
	}
}

// ObserveRefund records a refund payout.
func (m *MiningMetrics) ObserveRefund() {
	if m == nil {
		return
	}
	m.refunds.Inc()
}

// ObserveIncentiveCreated records a new program.
func (m *MiningMetrics) ObserveIncentiveCreated() {
	if m == nil {
		return
	}
	m.claimedTotal.Inc()
	m.activeIncentive.Inc()
}

// ObserveRejected records a rejected mutating operation.
func (m *MiningMetrics) ObserveRejected(op string) {
	if m == nil {
		return
	}
	m.rejectedOps.WithLabelValues(op).Inc()
}
