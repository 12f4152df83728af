package model

// Grade is the letter grade derived from a quality score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

type QualityScore struct {
	Score       int       `json:"score" yaml:"score"`
	Grade       Grade     `json:"grade" yaml:"grade"`
	Breakdown   Breakdown `json:"breakdown" yaml:"breakdown"`
	Suggestions []string  `json:"suggestions" yaml:"suggestions"`
	Summary     string    `json:"summary" yaml:"summary"`
}

type Breakdown struct {
	Overview     CriterionScore `json:"overview" yaml:"overview"`
	Installation CriterionScore `json:"installation" yaml:"installation"`
	Usage        CriterionScore `json:"usage" yaml:"usage"`
	APICoverage  CriterionScore `json:"apiCoverage" yaml:"apiCoverage"`
	Structure    CriterionScore `json:"structure" yaml:"structure"`
}

type CriterionScore struct {
	Points    int    `json:"points" yaml:"points"`
	MaxPoints int    `json:"maxPoints" yaml:"maxPoints"`
	Detail    string `json:"detail" yaml:"detail"`
}

// Total is the unclamped sum of all criterion points.
func (b Breakdown) Total() int {
	return b.Overview.Points + b.Installation.Points + b.Usage.Points + b.APICoverage.Points + b.Structure.Points
}
