package bot

import "github.com/munhub/conference_bot/internal/db"

const (
	// participant registration form
	StepRegFullName    = "reg_full_name"
	StepRegAge         = "reg_age"
	StepRegEmail       = "reg_email"
	StepRegInstitution = "reg_institution"
	StepRegExperience  = "reg_experience"
	StepRegCommittee   = "reg_committee"

	// conference creation/editing form (shared steps, Editing flag decides)
	StepConfName        = "conf_name"
	StepConfDescription = "conf_description"
	StepConfCity        = "conf_city"
	StepConfDateStart   = "conf_date_start"
	StepConfDateEnd     = "conf_date_end"
	StepConfFee         = "conf_fee"
	StepConfQR          = "conf_qr"
	StepConfPoster      = "conf_poster"

	// support appeal form
	StepSupportMessage = "support_message"

	// single-input follow-ups
	StepRejectReason  = "reject_reason"
	StepDeleteReason  = "delete_reason"
	StepBanReason     = "ban_reason"
	StepSupportReply  = "support_reply"
	StepPauseReason   = "pause_reason"
	StepBroadcastText = "broadcast_text"
)

// UserState holds the active form step and everything collected so far for
// one chat. It lives in process memory only; a restart drops it.
type UserState struct {
	Step string

	// registration answers
	ConferenceID int64
	FullName     string
	Age          int
	Email        string
	Institution  string
	Experience   string

	// conference form accumulator; Editing marks the edit flow
	Payload    db.ConferencePayload
	Editing    bool
	EditConfID int64

	// follow-up targets
	ApplicationID int64
	RequestID     int64
	TargetConfID  int64
	BanTarget     string
	BanTargetID   int64
	BanAction     string
}

// StateStore tracks the conversation state per chat. The update loop is
// serial, so no locking is needed; a second process must not share it.
type StateStore struct {
	states map[int64]*UserState
}

func NewStateStore() *StateStore {
	return &StateStore{states: make(map[int64]*UserState)}
}

// Get returns the state for the chat, creating an idle one on first use so
// form handlers never see nil.
func (s *StateStore) Get(chatID int64) *UserState {
	state, ok := s.states[chatID]
	if !ok {
		state = &UserState{}
		s.states[chatID] = state
	}
	return state
}

// Step returns the active step, or "" when the chat is idle.
func (s *StateStore) Step(chatID int64) string {
	if state, ok := s.states[chatID]; ok {
		return state.Step
	}
	return ""
}

func (s *StateStore) Set(chatID int64, step string) *UserState {
	state := s.Get(chatID)
	state.Step = step
	return state
}

// Clear drops the chat's state entirely, answers included.
func (s *StateStore) Clear(chatID int64) {
	delete(s.states, chatID)
}
