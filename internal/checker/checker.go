package checker

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hciniramy/elle/internal/analyzers"
	"github.com/hciniramy/elle/internal/analyzers/listappend"
	"github.com/hciniramy/elle/internal/analyzers/rwregister"
	"github.com/hciniramy/elle/internal/anomaly"
	"github.com/hciniramy/elle/internal/graph"
	"github.com/hciniramy/elle/internal/history"
	"github.com/hciniramy/elle/internal/orders"
	"github.com/hciniramy/elle/internal/pairexplain"
	"github.com/hciniramy/elle/internal/telemetry"
	"github.com/hciniramy/elle/pkg/logging"
)

// Valid is the three-valued verdict §4.9/§6 describes.
type Valid string

const (
	ValidTrue    Valid = "true"
	ValidFalse   Valid = "false"
	ValidUnknown Valid = "unknown"
)

// Options configures a single analysis run (§6 "Options").
type Options struct {
	// ConsistencyModels lists the models the history is checked against.
	// Defaults to [strict-serializable] (§6).
	ConsistencyModels []Model

	// Anomalies lists additional anomaly tags to treat as prohibited,
	// beyond what ConsistencyModels already implies.
	Anomalies []anomaly.Tag

	// CycleSearchTimeout bounds wall-clock spent per SCC per spec class.
	CycleSearchTimeout time.Duration

	// AdditionalGraphs lets a caller contribute extra labeled graphs over
	// the same history (§6), unioned in alongside the two workload
	// analyzers' graphs and the order graphs.
	AdditionalGraphs []func(*history.History) *graph.Graph

	Logger *logging.Logger

	// Metrics, if set, records per-run Prometheus observations (anomaly
	// counts, SCC sizes, timeouts, total duration). Optional.
	Metrics *telemetry.Metrics
}

// DefaultOptions returns strict-serializable checking with the spec's
// default 1000ms per-class cycle search timeout.
func DefaultOptions() Options {
	return Options{
		ConsistencyModels:  []Model{StrictSerializable},
		CycleSearchTimeout: 1000 * time.Millisecond,
		Logger:             logging.Default(),
	}
}

// Result is the analysis result (§6 "Analysis result").
type Result struct {
	Valid            Valid                              `json:"valid"`
	AnomalyTypes     []anomaly.Tag                      `json:"anomaly_types"`
	Anomalies        map[anomaly.Tag][]anomaly.Finding   `json:"anomalies"`
	ImpossibleModels []Model                             `json:"impossible_models"`
}

// Analyze runs the full pipeline: C1 (already built by the caller) →
// (C2, C3) → C4 → C5 → C6 → classified anomalies, with C8 running
// concurrently, then aggregates a verdict (C9).
func Analyze(ctx context.Context, h *history.History, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if len(opts.ConsistencyModels) == 0 {
		opts.ConsistencyModels = []Model{StrictSerializable}
	}
	if opts.CycleSearchTimeout == 0 {
		opts.CycleSearchTimeout = 1000 * time.Millisecond
	}
	log := opts.Logger
	start := time.Now()
	if opts.Metrics != nil {
		defer func() { opts.Metrics.AnalysisDuration.Observe(time.Since(start).Seconds()) }()
	}

	requestedAnomalies := make(map[anomaly.Tag]bool, len(opts.Anomalies))
	for _, tag := range opts.Anomalies {
		requestedAnomalies[tag] = true
	}
	prohibited := allAnomaliesImplying(requestedAnomalies)
	for tag := range anomaliesProhibitedBy(opts.ConsistencyModels) {
		prohibited[tag] = true
	}
	reportable := make(map[anomaly.Tag]bool, len(prohibited))
	for tag := range prohibited {
		reportable[tag] = true
	}
	for _, tag := range alwaysReportable {
		reportable[tag] = true
	}

	wantRealtime := anyRealtimeSuffixed(reportable)
	wantProcess := wantRealtime || anyProcessSuffixed(reportable)

	log.Info("starting analysis", "ops", len(h.Ops()), "models", opts.ConsistencyModels)

	var (
		listAppendResult *analyzers.Result
		rwRegisterResult *analyzers.Result
		ordGraphs        *orders.Graphs
		extraGraphs      = make([]*graph.Graph, len(opts.AdditionalGraphs))
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res, err := listappend.New().Analyze(h)
		listAppendResult = res
		return err
	})
	g.Go(func() error {
		res, err := rwregister.New().Analyze(h)
		rwRegisterResult = res
		return err
	})
	g.Go(func() error {
		var err error
		ordGraphs, err = orders.BuildAll(gctx, h, wantProcess, wantRealtime)
		return err
	})
	detectFns := []func(*history.History) []anomaly.Finding{
		anomaly.DetectAbortedReads,
		anomaly.DetectIntermediateReads,
		anomaly.DetectLostUpdates,
	}
	detectedByFn := make([][]anomaly.Finding, len(detectFns))
	for i, fn := range detectFns {
		i, fn := i, fn
		g.Go(func() error {
			detectedByFn[i] = fn(h)
			return nil
		})
	}
	for i, extra := range opts.AdditionalGraphs {
		i, extra := i, extra
		g.Go(func() error {
			extraGraphs[i] = extra(h)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var detected []anomaly.Finding
	for _, fs := range detectedByFn {
		detected = append(detected, fs...)
	}

	var findings []anomaly.Finding
	allGraphs := []*graph.Graph{listAppendResult.Graph, rwRegisterResult.Graph}
	allGraphs = append(allGraphs, extraGraphs...)
	explainers := []pairexplain.Explainer{listAppendResult.Explainer, rwRegisterResult.Explainer}
	findings = append(findings, listAppendResult.Findings...)
	findings = append(findings, rwRegisterResult.Findings...)

	if ordGraphs != nil {
		if ordGraphs.Process != nil {
			allGraphs = append(allGraphs, ordGraphs.Process)
		}
		if ordGraphs.Realtime != nil {
			allGraphs = append(allGraphs, ordGraphs.Realtime)
		}
	}
	unified := graph.Union(allGraphs...)
	unified.Freeze()

	if len(unified.NodeIndices()) == 0 {
		findings = append(findings, anomaly.Finding{Type: anomaly.EmptyTransactionGraph})
	}

	sccs := graph.FindSCCs(unified)
	if opts.Metrics != nil {
		for _, scc := range sccs {
			opts.Metrics.SCCSize.Observe(float64(len(scc.Nodes)))
		}
	}

	proj := graph.NewProjector(unified)
	preWarmProjections(proj)

	opOf := func(i int) (history.Op, bool) { return unified.Node(i) }
	explainer := pairexplain.Combine(explainers...)

	cycleFindings := anomaly.Search(sccs, proj, opOf, explainer, anomaly.Options{
		CycleSearchTimeout: opts.CycleSearchTimeout,
		CheckProcess:       wantProcess,
		CheckRealtime:      wantRealtime,
	})

	findings = append(findings, cycleFindings...)
	findings = append(findings, detected...)

	log.Info("analysis complete", "sccs", len(sccs), "findings", len(findings))

	result := aggregate(findings, reportable, prohibited, opts.ConsistencyModels)
	if opts.Metrics != nil {
		for tag, fs := range result.Anomalies {
			opts.Metrics.AnomaliesFound.WithLabelValues(string(tag)).Add(float64(len(fs)))
			if tag == anomaly.CycleSearchTimeout {
				opts.Metrics.CycleSearchTimeouts.Add(float64(len(fs)))
			}
		}
	}
	return result, nil
}

func aggregate(findings []anomaly.Finding, reportable, prohibited map[anomaly.Tag]bool, models []Model) *Result {
	byTag := make(map[anomaly.Tag][]anomaly.Finding)
	for _, f := range findings {
		if !reportable[f.Type] {
			continue
		}
		byTag[f.Type] = append(byTag[f.Type], f)
	}

	var types []anomaly.Tag
	for tag := range byTag {
		types = append(types, tag)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	anyProhibited := false
	anyUnknown := false
	for tag := range byTag {
		if prohibited[tag] {
			anyProhibited = true
		} else {
			anyUnknown = true
		}
	}

	valid := ValidTrue
	switch {
	case anyProhibited:
		valid = ValidFalse
	case anyUnknown:
		valid = ValidUnknown
	}

	var impossible []Model
	for _, m := range models {
		modelProhibits := allAnomaliesImplying(anomaliesProhibitedBy([]Model{m}))
		for tag := range byTag {
			if modelProhibits[tag] {
				impossible = append(impossible, m)
				break
			}
		}
	}

	return &Result{
		Valid:            valid,
		AnomalyTypes:     types,
		Anomalies:        byTag,
		ImpossibleModels: impossible,
	}
}

func anyRealtimeSuffixed(tags map[anomaly.Tag]bool) bool {
	for tag := range tags {
		if strings.HasSuffix(string(tag), "-realtime") {
			return true
		}
	}
	return false
}

func anyProcessSuffixed(tags map[anomaly.Tag]bool) bool {
	for tag := range tags {
		if strings.HasSuffix(string(tag), "-process") {
			return true
		}
	}
	return false
}

// preWarmProjections materializes every projection the search will need
// before cycle search begins (§4.4, §9): the base relation sets plus the
// process/realtime singleton sets used by the -process/-realtime search
// variants.
func preWarmProjections(proj *graph.Projector) {
	proj.PreWarm([]graph.LabelSet{
		graph.NewLabelSet(graph.WW),
		graph.NewLabelSet(graph.WW, graph.WR),
		graph.NewLabelSet(graph.WW, graph.WR, graph.RW),
		graph.NewLabelSet(graph.ProcessLabel),
		graph.NewLabelSet(graph.RealtimeLabel),
	})
}
