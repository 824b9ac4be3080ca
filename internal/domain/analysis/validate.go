package analysis

import (
	"encoding/json"
	"strings"

	"github.com/clinwell/checkin-api/internal/domain/pipeline"
)

// Issue is one violated field: path + reason. Validation reports every issue
// found, not just the first.
type Issue struct {
	Path   string
	Reason string
}

func (i Issue) String() string { return i.Path + ": " + i.Reason }

// Parse turns the provider's raw text into a validated ClinicalAnalysis.
// The text may be wrapped in a markdown code fence; that is stripped first.
// Syntax errors come back as PARSE_FAILED, schema violations as a single
// VALIDATION_FAILED aggregating every issue.
func Parse(text string) (*ClinicalAnalysis, error) {
	cleaned := StripCodeFence(text)

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, pipeline.Wrap(pipeline.CodeParseFailed, err, "response is not valid JSON")
	}

	issues := raw.validate()
	if len(issues) > 0 {
		return nil, pipeline.E(pipeline.CodeValidationFailed, "clinical schema violations: %s", joinIssues(issues))
	}
	return raw.toAnalysis(), nil
}

// StripCodeFence removes one surrounding markdown fence (``` or ```json)
// if present. Anything else is returned trimmed but untouched.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop an optional language tag on the opening fence line
	if idx := strings.Index(s, "\n"); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first == "" || isFenceTag(first) {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func isFenceTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func joinIssues(issues []Issue) string {
	parts := make([]string, 0, len(issues))
	for _, is := range issues {
		parts = append(parts, is.String())
	}
	return strings.Join(parts, "; ")
}

//
// ==== raw mirror ====
//
// Pointer fields so missing keys are distinguishable from zero values.

type rawAnalysis struct {
	MoodScore       *int           `json:"mood_score"`
	RiskFlags       *rawRiskFlags  `json:"risk_flags"`
	Biomarkers      *rawBiomarkers `json:"biomarkers"`
	ClinicalSummary *string        `json:"clinical_summary"`
	MSE             *rawMSE        `json:"mse"`
}

type rawRiskFlags struct {
	Suicidality    *bool `json:"suicidality"`
	SelfHarm       *bool `json:"self_harm"`
	SevereDistress *bool `json:"severe_distress"`
}

type rawBiomarkers struct {
	SpeechLatency *string `json:"speech_latency"`
	Affect        *string `json:"affect"`
	EyeContact    *string `json:"eye_contact"`
}

type rawMSE struct {
	Appearance     *rawAppearance     `json:"appearance"`
	Behavior       *rawBehavior       `json:"behavior"`
	Speech         *rawSpeech         `json:"speech"`
	MoodAffect     *rawMoodAffect     `json:"mood_affect"`
	ThoughtProcess *rawThoughtProcess `json:"thought_process"`
	ThoughtContent *rawThoughtContent `json:"thought_content"`
	Cognition      *rawCognition      `json:"cognition"`
}

type rawAppearance struct {
	Grooming *string `json:"grooming"`
	Attire   *string `json:"attire"`
}

type rawBehavior struct {
	Psychomotor *string `json:"psychomotor"`
	Cooperation *string `json:"cooperation"`
}

type rawSpeech struct {
	Rate   *string `json:"rate"`
	Volume *string `json:"volume"`
}

type rawMoodAffect struct {
	Mood             *string `json:"mood"`
	AffectCongruence *string `json:"affect_congruence"`
}

type rawThoughtProcess struct {
	Organization *string `json:"organization"`
}

type rawThoughtContent struct {
	Content *string `json:"content"`
}

type rawCognition struct {
	Orientation *string `json:"orientation"`
	Attention   *string `json:"attention"`
}

//
// ==== validation ====
//

type issueList struct {
	issues []Issue
}

func (l *issueList) add(path, reason string) {
	l.issues = append(l.issues, Issue{Path: path, Reason: reason})
}

func (l *issueList) requireEnum(path string, v *string, allowed []string) {
	if v == nil {
		l.add(path, "is required")
		return
	}
	for _, a := range allowed {
		if *v == a {
			return
		}
	}
	l.add(path, "must be one of: "+strings.Join(allowed, ", "))
}

func (l *issueList) requireBool(path string, v *bool) {
	if v == nil {
		l.add(path, "is required")
	}
}

func (r *rawAnalysis) validate() []Issue {
	var l issueList

	if r.MoodScore == nil {
		l.add("mood_score", "is required")
	} else if *r.MoodScore < MoodScoreMin || *r.MoodScore > MoodScoreMax {
		l.add("mood_score", "must be between 1 and 10")
	}

	if r.RiskFlags == nil {
		l.add("risk_flags", "is required")
	} else {
		l.requireBool("risk_flags.suicidality", r.RiskFlags.Suicidality)
		l.requireBool("risk_flags.self_harm", r.RiskFlags.SelfHarm)
		l.requireBool("risk_flags.severe_distress", r.RiskFlags.SevereDistress)
	}

	if r.Biomarkers == nil {
		l.add("biomarkers", "is required")
	} else {
		l.requireEnum("biomarkers.speech_latency", r.Biomarkers.SpeechLatency, SpeechLatencyValues)
		l.requireEnum("biomarkers.affect", r.Biomarkers.Affect, AffectValues)
		l.requireEnum("biomarkers.eye_contact", r.Biomarkers.EyeContact, EyeContactValues)
	}

	if r.ClinicalSummary == nil {
		l.add("clinical_summary", "is required")
	} else if n := len([]rune(*r.ClinicalSummary)); n < SummaryMinLen || n > SummaryMaxLen {
		l.add("clinical_summary", "length must be between 1 and 2000")
	}

	// mse is optional, but if present it must be complete
	if r.MSE != nil {
		r.MSE.validate(&l)
	}

	return l.issues
}

func (m *rawMSE) validate(l *issueList) {
	if m.Appearance == nil {
		l.add("mse.appearance", "is required")
	} else {
		l.requireEnum("mse.appearance.grooming", m.Appearance.Grooming, GroomingValues)
		l.requireEnum("mse.appearance.attire", m.Appearance.Attire, AttireValues)
	}
	if m.Behavior == nil {
		l.add("mse.behavior", "is required")
	} else {
		l.requireEnum("mse.behavior.psychomotor", m.Behavior.Psychomotor, PsychomotorValues)
		l.requireEnum("mse.behavior.cooperation", m.Behavior.Cooperation, CooperationValues)
	}
	if m.Speech == nil {
		l.add("mse.speech", "is required")
	} else {
		l.requireEnum("mse.speech.rate", m.Speech.Rate, SpeechRateValues)
		l.requireEnum("mse.speech.volume", m.Speech.Volume, SpeechVolumeValues)
	}
	if m.MoodAffect == nil {
		l.add("mse.mood_affect", "is required")
	} else {
		l.requireEnum("mse.mood_affect.mood", m.MoodAffect.Mood, MoodValues)
		l.requireEnum("mse.mood_affect.affect_congruence", m.MoodAffect.AffectCongruence, AffectCongruenceValues)
	}
	if m.ThoughtProcess == nil {
		l.add("mse.thought_process", "is required")
	} else {
		l.requireEnum("mse.thought_process.organization", m.ThoughtProcess.Organization, OrganizationValues)
	}
	if m.ThoughtContent == nil {
		l.add("mse.thought_content", "is required")
	} else {
		l.requireEnum("mse.thought_content.content", m.ThoughtContent.Content, ThoughtContentValues)
	}
	if m.Cognition == nil {
		l.add("mse.cognition", "is required")
	} else {
		l.requireEnum("mse.cognition.orientation", m.Cognition.Orientation, OrientationValues)
		l.requireEnum("mse.cognition.attention", m.Cognition.Attention, AttentionValues)
	}
}

// toAnalysis materializes the typed record. Only called after validate()
// came back clean, so every required pointer is non-nil here.
func (r *rawAnalysis) toAnalysis() *ClinicalAnalysis {
	out := &ClinicalAnalysis{
		MoodScore: *r.MoodScore,
		RiskFlags: RiskFlags{
			Suicidality:    *r.RiskFlags.Suicidality,
			SelfHarm:       *r.RiskFlags.SelfHarm,
			SevereDistress: *r.RiskFlags.SevereDistress,
		},
		Biomarkers: Biomarkers{
			SpeechLatency: *r.Biomarkers.SpeechLatency,
			Affect:        *r.Biomarkers.Affect,
			EyeContact:    *r.Biomarkers.EyeContact,
		},
		ClinicalSummary: *r.ClinicalSummary,
	}
	if r.MSE != nil {
		out.MSE = &MentalStatusExam{
			Appearance: MSEAppearance{
				Grooming: *r.MSE.Appearance.Grooming,
				Attire:   *r.MSE.Appearance.Attire,
			},
			Behavior: MSEBehavior{
				Psychomotor: *r.MSE.Behavior.Psychomotor,
				Cooperation: *r.MSE.Behavior.Cooperation,
			},
			Speech: MSESpeech{
				Rate:   *r.MSE.Speech.Rate,
				Volume: *r.MSE.Speech.Volume,
			},
			MoodAffect: MSEMoodAffect{
				Mood:             *r.MSE.MoodAffect.Mood,
				AffectCongruence: *r.MSE.MoodAffect.AffectCongruence,
			},
			ThoughtProcess: MSEThoughtProcess{
				Organization: *r.MSE.ThoughtProcess.Organization,
			},
			ThoughtContent: MSEThoughtContent{
				Content: *r.MSE.ThoughtContent.Content,
			},
			Cognition: MSECognition{
				Orientation: *r.MSE.Cognition.Orientation,
				Attention:   *r.MSE.Cognition.Attention,
			},
		}
	}
	return out
}
