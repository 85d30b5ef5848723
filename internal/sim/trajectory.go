package sim

// Status classifies how a closed-loop run ended.
type Status int

const (
	// StatusCompleted means the run reached the full horizon.
	StatusCompleted Status = iota
	// StatusConverged means the trailing surface window settled below
	// tolerance and the run was cut short.
	StatusConverged
	// StatusUnstable means a state component diverged or went non-finite.
	StatusUnstable
	// StatusTimedOut means the context expired mid-run.
	StatusTimedOut
	// StatusInvalid marks a candidate whose gains were rejected before
	// any simulation ran.
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusConverged:
		return "converged"
	case StatusUnstable:
		return "unstable"
	case StatusTimedOut:
		return "timed_out"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// ParseStatus is the inverse of String, for rehydrating persisted runs.
func ParseStatus(name string) (Status, bool) {
	for _, s := range []Status{StatusCompleted, StatusConverged, StatusUnstable, StatusTimedOut, StatusInvalid} {
		if s.String() == name {
			return s, true
		}
	}
	return StatusCompleted, false
}

// Trajectory is the record of one closed-loop run. Times, States, Controls
// and Surfaces always have equal length; States holds the pre-step state at
// each tick, so the state the plant ended in after the last step is not
// recorded.
type Trajectory struct {
	Times    []float64
	States   []State
	Controls []float64
	Surfaces []float64

	Status Status
	// FailTime is the simulation time at which divergence was detected.
	// Only meaningful when Status is StatusUnstable.
	FailTime float64

	Dt       float64
	Duration float64
}

func (tr *Trajectory) Steps() int { return len(tr.Times) }

// Invalid reports whether the trajectory is a pre-simulation rejection
// sentinel rather than the record of an actual run.
func (tr *Trajectory) Invalid() bool { return tr.Status == StatusInvalid }

// InvalidTrajectory builds the sentinel returned for candidates whose gains
// fail validation. It carries no samples.
func InvalidTrajectory(cfg Config) *Trajectory {
	return &Trajectory{
		Status:   StatusInvalid,
		Dt:       cfg.Dt,
		Duration: cfg.Duration,
	}
}
