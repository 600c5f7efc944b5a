// Package checker implements C9: the result aggregator that turns a set
// of found anomalies into a verdict against a set of consistency models,
// plus the top-level Analyze entry point wiring C1 through C10 together.
package checker

import "github.com/hciniramy/elle/internal/anomaly"

// Model names a consistency model tag recognized by the aggregator.
type Model string

const (
	ReadUncommitted    Model = "read-uncommitted"
	ReadCommitted      Model = "read-committed"
	SnapshotIsolation  Model = "snapshot-isolation"
	Serializable       Model = "serializable"
	StrictSerializable Model = "strict-serializable"
)

// baseProhibited lists, for each model, the unsuffixed cycle anomaly tags
// it prohibits, following the standard Adya/Jepsen hierarchy: each model
// prohibits every anomaly the weaker models above it in this table
// prohibit, plus more classes (serializable adds G-nonadjacent and
// G2-item; strict-serializable's base set equals serializable's and it
// differs only through realtimeStrict).
var baseProhibited = map[Model][]anomaly.Tag{
	ReadUncommitted:    {anomaly.G0},
	ReadCommitted:      {anomaly.G0, anomaly.G1c},
	SnapshotIsolation:  {anomaly.G0, anomaly.G1c, anomaly.GSingle},
	Serializable:       {anomaly.G0, anomaly.G1c, anomaly.GSingle, anomaly.GNonadjacent, anomaly.G2Item},
	StrictSerializable: {anomaly.G0, anomaly.G1c, anomaly.GSingle, anomaly.GNonadjacent, anomaly.G2Item},
}

// realtimeStrict models additionally prohibit every cycle anomaly's
// -realtime and -process variants: a strict-serializable store may never violate
// observed real-time order, even via a cycle that would otherwise be
// tolerated (§4.9, §8 scenario S6).
var realtimeStrict = map[Model]bool{
	StrictSerializable: true,
}

// alwaysReportable lists the unknown-class analysis anomalies the
// aggregator always treats as reportable regardless of model (§4.9):
// these are never silently swallowed.
var alwaysReportable = []anomaly.Tag{
	anomaly.EmptyTransactionGraph,
	anomaly.CycleSearchTimeout,
}

// anomaliesProhibitedBy returns the set of anomaly tags prohibited by the
// given models, unioned, including -process/-realtime suffixed variants
// for models in realtimeStrict.
func anomaliesProhibitedBy(models []Model) map[anomaly.Tag]bool {
	out := make(map[anomaly.Tag]bool)
	for _, m := range models {
		for _, tag := range baseProhibited[m] {
			out[tag] = true
			if realtimeStrict[m] {
				out[tag.Suffix("-realtime")] = true
				out[tag.Suffix("-process")] = true
			}
		}
	}
	return out
}

// impliesStronger captures the priority-ordered dominance relation (§8
// testable property 3): a cycle classified as a more specific anomaly
// also satisfies every less specific anomaly's prohibition. Finding a
// G0 cycle, for instance, also counts against a model that only lists
// G1c as prohibited, since an all-ww cycle is a (degenerate) case of the
// ww/wr cycle G1c describes.
var impliesStronger = map[anomaly.Tag][]anomaly.Tag{
	anomaly.G0: {anomaly.G1c, anomaly.GSingle, anomaly.GNonadjacent, anomaly.G2Item},
	anomaly.G1c: {anomaly.GSingle, anomaly.GNonadjacent, anomaly.G2Item},
}

// allAnomaliesImplying closes requested under impliesStronger in
// reverse: if X implies Y and the caller asked to prohibit Y, then
// finding X must count too. Returns requested plus every tag that
// implies a member of requested.
func allAnomaliesImplying(requested map[anomaly.Tag]bool) map[anomaly.Tag]bool {
	out := make(map[anomaly.Tag]bool, len(requested))
	for tag := range requested {
		out[tag] = true
	}
	for weaker, strongerSet := range impliesStronger {
		for _, stronger := range strongerSet {
			if requested[stronger] {
				out[weaker] = true
			}
		}
	}
	return out
}
