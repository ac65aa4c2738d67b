package membership

import metrics "github.com/armon/go-metrics"

// Counters and gauges emitted by the Coordinator, using the same
// armon/go-metrics library hashicorp/serf's ping_delegate.go imports. A nil sink (metrics.Default() with no configured
// sinks) is a safe no-op, matching go-metrics' own default behavior.
const (
	metricMemberUp         = "membership.member.up"
	metricMemberDown       = "membership.member.down"
	metricMemberRemoved    = "membership.member.removed"
	metricMemberWeaklyUp   = "membership.member.weakly_up"
	metricLeaderPromotions = "membership.leader.promotions"
	metricMergeCount       = "membership.merge.count"
	metricMembersGauge     = "membership.members.count"
)

func incrCounter(name string) {
	metrics.IncrCounter([]string{name}, 1)
}

func setGauge(name string, value float32) {
	metrics.SetGauge([]string{name}, value)
}
