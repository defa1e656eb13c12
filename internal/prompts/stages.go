package prompts

import (
	"encoding/json"
	"slices"
)

// Stage identifies a pipeline step whose instructions can be overridden.
type Stage string

const (
	StageClassify Stage = "classify"
	StageAgent    Stage = "agent"
	StageJudge    Stage = "judge"
	StageExtract  Stage = "extract"
	StageFormat   Stage = "format"
)

var stages = []Stage{
	StageClassify,
	StageAgent,
	StageJudge,
	StageExtract,
	StageFormat,
}

// Stages returns every valid stage in pipeline order.
func Stages() []Stage {
	return stages
}

// UnmarshalJSON rejects unknown stage values.
func (s *Stage) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseStage(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStage validates s as a known stage.
func ParseStage(s string) (Stage, error) {
	v := Stage(s)
	if !slices.Contains(stages, v) {
		return "", ErrInvalidStage
	}
	return v, nil
}
