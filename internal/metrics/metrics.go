// Package metrics exposes the cross-cutting counters and histograms
// SPEC_FULL.md §8 wires via github.com/prometheus/client_golang, scraped
// by /metrics (SPEC_FULL.md §10). The counters are registered and exported;
// no component in this repository increments them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles the pipeline's counters.
type Registry struct {
	WebhooksReceived    *prometheus.CounterVec
	LeadsCreated        prometheus.Counter
	ValidationFailures  prometheus.Counter
	DuplicatesSuppressed prometheus.Counter
	AssignmentsSettled  *prometheus.CounterVec
	AssignmentsAborted  *prometheus.CounterVec
	NoEligibleAgency    prometheus.Counter
	BatchSweepAssigned  prometheus.Counter
	BatchSweepSkipped   prometheus.Counter
}

// New registers every metric against reg and returns the bundle. Callers
// at cmd/ entry points pass prometheus.NewRegistry() (not the global
// default registry) so tests can construct an isolated Registry per case.
func New(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		WebhooksReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leadbroker_webhooks_received_total",
			Help: "Inbound webhook submissions, labeled by portal code.",
		}, []string{"portal"}),
		LeadsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "leadbroker_leads_created_total",
			Help: "Leads persisted after passing validation and dedup.",
		}),
		ValidationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "leadbroker_validation_failures_total",
			Help: "Inbound payloads rejected by the validator.",
		}),
		DuplicatesSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Name: "leadbroker_duplicates_suppressed_total",
			Help: "Inbound payloads suppressed as duplicates.",
		}),
		AssignmentsSettled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leadbroker_assignments_settled_total",
			Help: "Assignments committed, labeled by method.",
		}, []string{"method"}),
		AssignmentsAborted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leadbroker_assignments_aborted_total",
			Help: "Assignment attempts that aborted, labeled by reason.",
		}, []string{"reason"}),
		NoEligibleAgency: factory.NewCounter(prometheus.CounterOpts{
			Name: "leadbroker_no_eligible_agency_total",
			Help: "Leads with zero eligible agencies after eligibility and capacity filtering.",
		}),
		BatchSweepAssigned: factory.NewCounter(prometheus.CounterOpts{
			Name: "leadbroker_batch_sweep_assigned_total",
			Help: "Backlog leads assigned by a batch-distribute sweep.",
		}),
		BatchSweepSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "leadbroker_batch_sweep_skipped_total",
			Help: "Backlog leads left unassigned after a batch-distribute sweep.",
		}),
	}
}
