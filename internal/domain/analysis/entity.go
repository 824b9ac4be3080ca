package analysis

// ClinicalAnalysis is the validated assessment produced from one check-in
// video. Instances only exist after full schema validation; a value of this
// type is always well-formed.
type ClinicalAnalysis struct {
	MoodScore       int               `json:"mood_score"`
	RiskFlags       RiskFlags         `json:"risk_flags"`
	Biomarkers      Biomarkers        `json:"biomarkers"`
	ClinicalSummary string            `json:"clinical_summary"`
	MSE             *MentalStatusExam `json:"mse,omitempty"`
}

// RiskFlags: three required booleans, no defaults
type RiskFlags struct {
	Suicidality    bool `json:"suicidality"`
	SelfHarm       bool `json:"self_harm"`
	SevereDistress bool `json:"severe_distress"`
}

// Biomarkers holds the observed behavioural markers, all closed enums.
type Biomarkers struct {
	SpeechLatency string `json:"speech_latency"`
	Affect        string `json:"affect"`
	EyeContact    string `json:"eye_contact"`
}

// MentalStatusExam is the optional extended record. When present it must be
// fully populated; partial MSE data is rejected, never default-filled.
type MentalStatusExam struct {
	Appearance     MSEAppearance     `json:"appearance"`
	Behavior       MSEBehavior       `json:"behavior"`
	Speech         MSESpeech         `json:"speech"`
	MoodAffect     MSEMoodAffect     `json:"mood_affect"`
	ThoughtProcess MSEThoughtProcess `json:"thought_process"`
	ThoughtContent MSEThoughtContent `json:"thought_content"`
	Cognition      MSECognition      `json:"cognition"`
}

type MSEAppearance struct {
	Grooming string `json:"grooming"`
	Attire   string `json:"attire"`
}

type MSEBehavior struct {
	Psychomotor string `json:"psychomotor"`
	Cooperation string `json:"cooperation"`
}

type MSESpeech struct {
	Rate   string `json:"rate"`
	Volume string `json:"volume"`
}

type MSEMoodAffect struct {
	Mood             string `json:"mood"`
	AffectCongruence string `json:"affect_congruence"`
}

type MSEThoughtProcess struct {
	Organization string `json:"organization"`
}

type MSEThoughtContent struct {
	Content string `json:"content"`
}

type MSECognition struct {
	Orientation string `json:"orientation"`
	Attention   string `json:"attention"`
}

// Closed value sets. Anything outside these is a validation failure.
var (
	SpeechLatencyValues = []string{"normal", "delayed", "rapid"}
	AffectValues        = []string{"congruent", "flat", "blunted", "labile", "anxious"}
	EyeContactValues    = []string{"good", "intermittent", "avoidant"}

	GroomingValues         = []string{"well_groomed", "fair", "disheveled"}
	AttireValues           = []string{"appropriate", "inappropriate"}
	PsychomotorValues      = []string{"normal", "retarded", "agitated"}
	CooperationValues      = []string{"cooperative", "guarded", "uncooperative"}
	SpeechRateValues       = []string{"normal", "slow", "pressured"}
	SpeechVolumeValues     = []string{"normal", "soft", "loud"}
	MoodValues             = []string{"euthymic", "depressed", "anxious", "irritable", "elevated"}
	AffectCongruenceValues = []string{"congruent", "incongruent"}
	OrganizationValues     = []string{"linear", "circumstantial", "tangential", "disorganized"}
	ThoughtContentValues   = []string{"none", "ruminations", "obsessions", "delusions"}
	OrientationValues      = []string{"oriented", "partially_oriented", "disoriented"}
	AttentionValues        = []string{"intact", "impaired"}
)

const (
	MoodScoreMin = 1
	MoodScoreMax = 10

	SummaryMinLen = 1
	SummaryMaxLen = 2000
)
