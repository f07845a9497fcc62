package model

// Signal is the directional classification for an asset.
type Signal string

const (
	SignalCall Signal = "CALL"
	SignalPut  Signal = "PUT"
	SignalHold Signal = "HOLD"
)

// Valid reports whether s is a member of the signal set.
func (s Signal) Valid() bool {
	switch s {
	case SignalCall, SignalPut, SignalHold:
		return true
	}
	return false
}

// FactorScore represents a single factor's scoring result.
type FactorScore struct {
	Name       string
	RawScore   float64
	Weight     float64
	Weighted   float64
	Commentary string
}

// SignalEvaluation is the full output of the classifier.
type SignalEvaluation struct {
	Factors    []FactorScore
	TotalScore float64
	Signal     Signal
	Reason     string
}
