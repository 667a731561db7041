package model

// The category blocks below are closed sets of yes/no flags. Keys a client
// sends that are not listed here are dropped on decode and every flag that
// is not sent stays false.

type FamilyHistory struct {
	Diabetes     bool `json:"diabetes"`
	Hypertension bool `json:"hypertension"`
	HeartDisease bool `json:"heartDisease"`
	Cancer       bool `json:"cancer"`
	Asthma       bool `json:"asthma"`
	Epilepsy     bool `json:"epilepsy"`
	Other        bool `json:"other"`
}

type CurrentlyExperiencing struct {
	ChestPain              bool `json:"chestPain"`
	ShortnessOfBreath      bool `json:"shortnessOfBreath"`
	Dizziness              bool `json:"dizziness"`
	SevereHeadache         bool `json:"severeHeadache"`
	SuddenWeakness         bool `json:"suddenWeakness"`
	VisionProblems         bool `json:"visionProblems"`
	DifficultySpeaking     bool `json:"difficultySpeaking"`
	Numbness               bool `json:"numbness"`
	WeightLoss             bool `json:"weightLoss"`
	WeightGain             bool `json:"weightGain"`
	NightSweats            bool `json:"nightSweats"`
	UnexplainedFever       bool `json:"unexplainedFever"`
	PersistentCough        bool `json:"persistentCough"`
	CoughingBlood          bool `json:"coughingBlood"`
	FrequentUrination      bool `json:"frequentUrination"`
	ExcessiveThirst        bool `json:"excessiveThirst"`
	Hunger                 bool `json:"hunger"`
	AbdominalPain          bool `json:"abdominalPain"`
	NauseaVomiting         bool `json:"nauseaVomiting"`
	Diarrhea               bool `json:"diarrhea"`
	JointPain              bool `json:"jointPain"`
	SkinRash               bool `json:"skinRash"`
	Swelling               bool `json:"swelling"`
	Fatigue                bool `json:"fatigue"`
	Anxiety                bool `json:"anxiety"`
	Depression             bool `json:"depression"`
	SleepProblems          bool `json:"sleepProblems"`
	MemoryIssues           bool `json:"memoryIssues"`
	ConcentrationIssues    bool `json:"concentrationIssues"`
	MoodSwings             bool `json:"moodSwings"`
	GastrointestinalIssues bool `json:"gastrointestinalIssues"`
	UrinaryIssues          bool `json:"urinaryIssues"`
	MenstrualIssues        bool `json:"menstrualIssues"`
	Other                  bool `json:"other"`
}

type Immunizations struct {
	Tetanus       bool `json:"tetanus"`
	Influenza     bool `json:"influenza"`
	Covid19       bool `json:"covid19"`
	HepatitisB    bool `json:"hepatitisB"`
	MMR           bool `json:"mmr"`
	Varicella     bool `json:"varicella"`
	Pneumococcal  bool `json:"pneumococcal"`
	Meningococcal bool `json:"meningococcal"`
	HPV           bool `json:"hpv"`
}

type Lifestyle struct {
	Smoking  bool `json:"smoking"`
	Alcohol  bool `json:"alcohol"`
	Exercise bool `json:"exercise"`
	Diet     bool `json:"diet"`
}
