package models

// Essay is one EssayRanking document assigned to the session.
type Essay struct {
	EssayID  string `json:"essay_id"`
	Title    string `json:"title,omitempty"`
	Text     string `json:"text"`
}

// EssayAssignment records which essays a participant was given at setup.
type EssayAssignment struct {
	SessionCode     SessionCode     `json:"session_code"`
	ParticipantCode ParticipantCode `json:"participant_code"`
	EssayIDs        []string        `json:"essay_ids"`
}

// RankingSubmission is one submit_ranking call; multiple are permitted and
// logged, each merging into Participant.CurrentRankings by essay_id.
type RankingSubmission struct {
	SubmissionID    string          `json:"submission_id"`
	SessionCode     SessionCode     `json:"session_code"`
	ParticipantCode ParticipantCode `json:"participant_code"`
	Rankings        []RankingEntry  `json:"rankings"`
}

// CandidateDocument is one HiddenProfiles participant's private document,
// plus the shared publicInfo document visible to all.
type CandidateDocument struct {
	SessionCode     SessionCode     `json:"session_code"`
	ParticipantCode ParticipantCode `json:"participant_code"`
	CandidateName   string          `json:"candidate_name"`
	Text            string          `json:"text"`
}
