package model

// ConstraintToggles switches the hard pairing constraints on or off.
type ConstraintToggles struct {
	NoRepeatTeammateInEvent           bool `json:"noRepeatTeammateInEvent"`
	NoRepeatTeammateFromPreviousEvent bool `json:"noRepeatTeammateFromPreviousEvent"`
	NoRepeatOpponentInEvent           bool `json:"noRepeatOpponentInEvent"`
}

// AllConstraints enables every hard constraint.
func AllConstraints() ConstraintToggles {
	return ConstraintToggles{
		NoRepeatTeammateInEvent:           true,
		NoRepeatTeammateFromPreviousEvent: true,
		NoRepeatOpponentInEvent:           true,
	}
}

// Settings is the generation settings snapshot for an event.
type Settings struct {
	// EloDiff is the configured rating-balance tolerance.
	EloDiff float64 `json:"eloDiff"`
	// EloDiffMax caps auto-relax escalation.
	EloDiffMax float64 `json:"eloDiffMax"`
	// EloDiffStep is added to the tolerance on each relaxation.
	EloDiffStep float64           `json:"eloDiffStep"`
	AutoRelax   bool              `json:"autoRelax"`
	Toggles     ConstraintToggles `json:"toggles"`

	// Search budgets.
	RoundAttempts       int `json:"roundAttempts"`
	PairingPermutations int `json:"pairingPermutations"`
	BacktrackLimit      int `json:"backtrackLimit"`
	AssemblyNodeBudget  int `json:"assemblyNodeBudget"`
}

// DefaultSettings returns the settings used when an event carries none.
func DefaultSettings() Settings {
	return Settings{
		EloDiff:             0.05,
		EloDiffMax:          0.30,
		EloDiffStep:         0.05,
		AutoRelax:           true,
		Toggles:             AllConstraints(),
		RoundAttempts:       60,
		PairingPermutations: 25,
		BacktrackLimit:      64,
		AssemblyNodeBudget:  20_000,
	}
}

// WithBudgetDefaults fills zero search budgets from DefaultSettings.
func (s Settings) WithBudgetDefaults() Settings {
	d := DefaultSettings()
	if s.RoundAttempts <= 0 {
		s.RoundAttempts = d.RoundAttempts
	}
	if s.PairingPermutations <= 0 {
		s.PairingPermutations = d.PairingPermutations
	}
	if s.BacktrackLimit <= 0 {
		s.BacktrackLimit = d.BacktrackLimit
	}
	if s.AssemblyNodeBudget <= 0 {
		s.AssemblyNodeBudget = d.AssemblyNodeBudget
	}
	return s
}

// GenerationMetadata records the search parameters that produced a schedule.
type GenerationMetadata struct {
	SeedUsed                 string            `json:"seedUsed"`
	EloDiffConfigured        float64           `json:"eloDiffConfigured"`
	EloDiffUsed              float64           `json:"eloDiffUsed"`
	RelaxIterations          int               `json:"relaxIterations"`
	ConstraintToggleSnapshot ConstraintToggles `json:"constraintToggleSnapshot"`
	Attempts                 int               `json:"attempts"`
	DurationMs               int64             `json:"durationMs"`
}
