package stage

import "fmt"

// Stage represents a named position in the production pipeline
type Stage string

const (
	StageWaiting    Stage = "WAITING"
	StageDesign     Stage = "DESIGN"
	StagePrintReady Stage = "PRINT_READY"
	StagePrinting   Stage = "PRINTING"
	StageCut        Stage = "CUT"
	StageCompleted  Stage = "COMPLETED"
	StageDelivered  Stage = "DELIVERED"
)

var validStages = map[Stage]bool{
	StageWaiting:    true,
	StageDesign:     true,
	StagePrintReady: true,
	StagePrinting:   true,
	StageCut:        true,
	StageCompleted:  true,
	StageDelivered:  true,
}

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// IsValid returns true if the stage is a valid pipeline stage
func (s Stage) IsValid() bool {
	return validStages[s]
}

// Parse converts a raw string into a Stage, rejecting unknown names
func Parse(raw string) (Stage, error) {
	s := Stage(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown stage: %q", raw)
	}
	return s, nil
}
