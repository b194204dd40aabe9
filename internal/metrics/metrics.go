package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/womboai/pft-nft-node/internal/memo"
)

var (
	initOnce sync.Once

	memosClassifiedCounter  *prometheus.CounterVec
	responsesEmittedCounter *prometheus.CounterVec
	reconcileFailureCounter prometheus.Counter
	rewardsEmittedCounter   prometheus.Counter
	rewardAmountMetric      prometheus.Histogram
	pollDurationMetric      prometheus.Histogram
)

// Init registers metrics on the default Prometheus registry exactly once.
func Init() {
	initOnce.Do(func() {
		memosClassifiedCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memos_classified_total",
				Help: "Total number of ledger memos classified by event kind.",
			},
			[]string{"kind"},
		)

		responsesEmittedCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "responses_emitted_total",
				Help: "Total number of response transactions emitted by kind.",
			},
			[]string{"kind"},
		)

		reconcileFailureCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "reconcile_failures_total",
				Help: "Total number of response checks that failed closed.",
			},
		)

		rewardsEmittedCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rewards_emitted_total",
				Help: "Total number of reward transactions emitted.",
			},
		)

		rewardAmountMetric = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "reward_amount_pft",
				Help:    "Distribution of emitted reward amounts in PFT.",
				Buckets: []float64{1, 10, 50, 100, 250, 500, 900, 1200},
			},
		)

		pollDurationMetric = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ledger_poll_duration_seconds",
				Help:    "Duration of ledger poll cycles in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		)

		prometheus.MustRegister(
			memosClassifiedCounter,
			responsesEmittedCounter,
			reconcileFailureCounter,
			rewardsEmittedCounter,
			rewardAmountMetric,
			pollDurationMetric,
		)

		// Ensure counter vectors are visible at /metrics before first increment.
		for _, kind := range []memo.EventKind{
			memo.KindRequest,
			memo.KindProposal,
			memo.KindAcceptance,
			memo.KindRefusal,
			memo.KindTaskOutput,
			memo.KindVerificationPrompt,
			memo.KindVerificationResponse,
			memo.KindReward,
			memo.KindImageGen,
			memo.KindImageGenResponse,
			memo.KindUnknown,
		} {
			memosClassifiedCounter.WithLabelValues(string(kind))
		}
	})
}

func IncMemoClassified(kind memo.EventKind) {
	Init()
	memosClassifiedCounter.WithLabelValues(string(kind)).Inc()
}

func IncResponseEmitted(kind memo.EventKind) {
	Init()
	responsesEmittedCounter.WithLabelValues(string(kind)).Inc()
}

func IncReconcileFailure() {
	Init()
	reconcileFailureCounter.Inc()
}

func IncRewardEmitted() {
	Init()
	rewardsEmittedCounter.Inc()
}

func ObserveRewardAmount(amount float64) {
	Init()
	rewardAmountMetric.Observe(amount)
}

func ObservePollDuration(d time.Duration) {
	Init()
	pollDurationMetric.Observe(d.Seconds())
}
