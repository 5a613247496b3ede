package app

// Phase is a stage of the run pipeline.
type Phase string

const (
	PhaseIdle              Phase = "IDLE"
	PhaseConfigLoaded      Phase = "CONFIG_LOADED"
	PhaseTimeseriesRunning Phase = "TIMESERIES_RUNNING"
	PhaseCatalogResolved   Phase = "CATALOG_RESOLVED"
	PhaseGraphBuilt        Phase = "GRAPH_BUILT"
	PhaseExecuting         Phase = "EXECUTING"
	PhaseDone              Phase = "DONE"
	PhaseFailed            Phase = "FAILED"
)

// setPhase records and logs a phase transition.
func (a *App) setPhase(p Phase) {
	a.mu.Lock()
	prev := a.phase
	a.phase = p
	a.history = append(a.history, p)
	a.mu.Unlock()

	if p == PhaseFailed {
		a.logger.Error("Phase transition.", "from", prev, "to", p)
		return
	}
	a.logger.Info("Phase transition.", "from", prev, "to", p)
}

// Phase returns the current phase.
func (a *App) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// PhaseHistory returns every phase entered so far, in order.
func (a *App) PhaseHistory() []Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Phase(nil), a.history...)
}
