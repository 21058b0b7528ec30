package audit

import "time"

// Action names a recorded domain event.
type Action string

const (
	ActionUserRegistered    Action = "user_registered"
	ActionClaimCommitted    Action = "claim_committed"
	ActionClaimConflicted   Action = "claim_conflicted"
	ActionVotesRecorded     Action = "votes_recorded"
	ActionAssemblyStarted   Action = "assembly_started"
	ActionAssemblyFinalized Action = "assembly_registries_finalized"
	ActionAssemblyReopened  Action = "assembly_reopened"
	ActionAssemblyFinished  Action = "assembly_finished"
	ActionAssemblyRestarted Action = "assembly_restarted"
	ActionQuestionCreated   Action = "question_created"
	ActionQuestionStatus    Action = "question_status_changed"
	ActionVoterBlockToggled Action = "voter_block_toggled"
	ActionRegistryBlocked   Action = "registry_vote_block_toggled"
	ActionRegistryDeleted   Action = "registry_delete_toggled"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Action     Action    `json:"action"`
	AssemblyID string    `json:"assembly_id,omitempty"`
	Document   string    `json:"document,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
