package deploy

// StageName identifies a phase of the deployment sequence.
type StageName string

// Canonical deployment stages, in execution order.
const (
	StageWillDeploy StageName = "willDeploy"
	StageBuild      StageName = "build"
	StageUpload     StageName = "upload"
	StageActivate   StageName = "activate"
	StageDidDeploy  StageName = "didDeploy"
)

// ReservedHookName is the plugin key that carries the plugin's own name and is
// never treated as a stage.
const ReservedHookName StageName = "name"

// DefaultStages returns the canonical five-stage sequence.
func DefaultStages() []StageName {
	return []StageName{
		StageWillDeploy,
		StageBuild,
		StageUpload,
		StageActivate,
		StageDidDeploy,
	}
}

// ParseStages converts raw names into stage names, dropping blanks.
func ParseStages(names []string) []StageName {
	stages := make([]StageName, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		stages = append(stages, StageName(name))
	}
	return stages
}

// String implements fmt.Stringer.
func (s StageName) String() string {
	return string(s)
}
