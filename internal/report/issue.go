package report

import "strings"

// IssueType identifies one of the running-form problems the analysis service
// reports on.
type IssueType string

const (
	IssuePosture    IssueType = "posture"
	IssueOverstride IssueType = "overstride"
	IssueVisibility IssueType = "visibility"
)

// PostureThresholdDegrees is the shoulder-hip-knee angle below which a frame
// counts as a posture error.
const PostureThresholdDegrees = 110.0

// allIssueTypes is the fixed presentation order.
var allIssueTypes = []IssueType{IssuePosture, IssueOverstride, IssueVisibility}

// AllIssueTypes returns the issue types in presentation order.
func AllIssueTypes() []IssueType {
	cp := make([]IssueType, len(allIssueTypes))
	copy(cp, allIssueTypes)
	return cp
}

// ParseIssueType converts a wire name into a known IssueType. The analysis
// service names visibility aggregates "baixa_visibilidade"; both spellings are
// accepted.
func ParseIssueType(value string) (IssueType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "posture":
		return IssuePosture, true
	case "overstride":
		return IssueOverstride, true
	case "visibility", "baixa_visibilidade":
		return IssueVisibility, true
	default:
		return "", false
	}
}

// UpstreamKey returns the key the analysis service uses for this issue type
// inside its aggregate objects.
func (t IssueType) UpstreamKey() string {
	if t == IssueVisibility {
		return "baixa_visibilidade"
	}
	return string(t)
}

// Valid reports whether t is one of the known issue types.
func (t IssueType) Valid() bool {
	_, ok := issueText[t]
	return ok
}

// IssueSet is a small bit set of issue types flagged on a single frame.
type IssueSet uint8

func issueBit(t IssueType) IssueSet {
	switch t {
	case IssuePosture:
		return 1 << 0
	case IssueOverstride:
		return 1 << 1
	case IssueVisibility:
		return 1 << 2
	default:
		return 0
	}
}

// NewIssueSet builds a set from the given types. Unknown types are ignored.
func NewIssueSet(types ...IssueType) IssueSet {
	var s IssueSet
	for _, t := range types {
		s |= issueBit(t)
	}
	return s
}

// Has reports whether t is a member of the set.
func (s IssueSet) Has(t IssueType) bool {
	bit := issueBit(t)
	return bit != 0 && s&bit != 0
}

// With returns a copy of the set including t.
func (s IssueSet) With(t IssueType) IssueSet { return s | issueBit(t) }

// IssueText is the static copy shown alongside each issue section.
type IssueText struct {
	Title       string
	Description string
	Impact      string
	Severity    string
	ChartTitle  string
}

var issueText = map[IssueType]IssueText{
	IssuePosture: {
		Title:       "Problemas de Postura",
		Description: "Detecção de postura incorreta durante a corrida, caracterizada por ângulos inadequados entre ombro, quadril e joelho.",
		Impact:      "Pode causar dores nas costas, redução da eficiência da corrida e aumento do risco de lesões.",
		Severity:    "medium",
		ChartTitle:  "Ângulo da Postura por Frame",
	},
	IssueOverstride: {
		Title:       "Problemas de Overstride",
		Description: "Detecção de passadas excessivamente longas, onde o pé aterrissa muito à frente do centro de massa.",
		Impact:      "Aumenta o impacto nas articulações, reduz a eficiência energética e pode causar lesões por overuse.",
		Severity:    "low",
		ChartTitle:  "Detecção de Overstride por Frame",
	},
	IssueVisibility: {
		Title:       "Problemas de Visibilidade",
		Description: "Frames onde a detecção de landmarks corporais foi comprometida devido a baixa qualidade da imagem.",
		Impact:      "Pode resultar em análises menos precisas e dados incompletos para avaliação biomecânica.",
		Severity:    "low",
	},
}

// TextFor returns the static copy for t. The second result is false for
// unknown issue types.
func TextFor(t IssueType) (IssueText, bool) {
	text, ok := issueText[t]
	return text, ok
}
