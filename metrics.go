package smr

import "time"

// MetricsObserver defines the interface for observing engine events.
type MetricsObserver interface {
	// OnReclaim is called when a reclamation scan completes.
	OnReclaim(duration time.Duration, participants, freed int, bound uint64)

	// OnRetire reports the total pending retired count after a retire.
	OnRetire(pending int)

	// OnRegister reports the participant count after a registration.
	OnRegister(participants int)

	// OnDeregister reports the participant count after a deregistration.
	OnDeregister(participants int)
}

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
type NoopMetricsObserver struct{}

func (o *NoopMetricsObserver) OnReclaim(duration time.Duration, participants, freed int, bound uint64) {
}
func (o *NoopMetricsObserver) OnRetire(pending int)          {}
func (o *NoopMetricsObserver) OnRegister(participants int)   {}
func (o *NoopMetricsObserver) OnDeregister(participants int) {}
