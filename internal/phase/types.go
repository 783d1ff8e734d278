package phase

// #region phase-id

// ID is one of the fixed negotiation phase labels.
type ID string

const (
	InitialResponse        ID = "initial_response"
	AskDetails             ID = "ask_details"
	KnowledgeCheck         ID = "knowledge_check"
	LanguageConfirm        ID = "language_confirm"
	RateNegotiation        ID = "rate_negotiation"
	DeadlineSamples        ID = "deadline_samples"
	StructureClarification ID = "structure_clarification"
	ContractAcceptance     ID = "contract_acceptance"

	// GeneralInquiry is only used by the response layer for unrecognized phases.
	GeneralInquiry ID = "general_inquiry"
)

// #endregion

// #region method

// Method tags where a detection result came from.
type Method string

const (
	MethodML      Method = "ml_model"
	MethodKeyword Method = "keyword_matching"
	MethodDefault Method = "default"
)

// #endregion

// #region info

// Info is the static catalog entry for a phase.
// Next is empty only for the terminal phase.
type Info struct {
	ID            ID     `json:"id" yaml:"id"`
	DisplayName   string `json:"display_name" yaml:"display_name"`
	Description   string `json:"description" yaml:"description"`
	Next          ID     `json:"next_phase,omitempty" yaml:"next_phase"`
	RequiresHuman bool   `json:"requires_human" yaml:"requires_human"`
}

// #endregion

// #region detection-result

// DetectionResult is produced fresh on every detection call.
type DetectionResult struct {
	Phase      ID      `json:"phase"`
	Confidence float64 `json:"confidence"`
	Method     Method  `json:"method"`
}

// Prediction is what a classifier capability returns before it is tagged.
type Prediction struct {
	Phase      ID
	Confidence float64
}

// #endregion
