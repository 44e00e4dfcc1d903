package setup

import "fmt"

// Stage of the setup conversation, each stage collects one answer
type Stage int

// conversation stages in the order they are visited
const (
	StageCollectKeywords Stage = iota
	StageRefineKeywords
	StageCollectCadence
	StageCollectSenderEmail
	StageCollectSenderPassword
	StageCollectRecipient
	StageCollectSMTPServer
	StageCollectSMTPPort
	StageConfirm
	StageDone
)

var stageNames = map[Stage]string{
	StageCollectKeywords:       "collect_keywords",
	StageRefineKeywords:        "refine_keywords",
	StageCollectCadence:        "collect_cadence",
	StageCollectSenderEmail:    "collect_sender_email",
	StageCollectSenderPassword: "collect_sender_password",
	StageCollectRecipient:      "collect_recipient",
	StageCollectSMTPServer:     "collect_smtp_server",
	StageCollectSMTPPort:       "collect_smtp_port",
	StageConfirm:               "confirm",
	StageDone:                  "done",
}

// String returns the stage name
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Step returns the position of the stage, 0 for keywords up to 9 for done
func (s Stage) Step() int { return int(s) }

// MarshalText encodes the stage as its name
func (s Stage) MarshalText() ([]byte, error) {
	if _, ok := stageNames[s]; !ok {
		return nil, fmt.Errorf("unknown stage %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes the stage from its name
func (s *Stage) UnmarshalText(text []byte) error {
	for st, name := range stageNames {
		if name == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", string(text))
}
