package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreatePollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Active   *bool    `json:"active,omitempty"`
}

type SetPollActiveRequest struct {
	Active bool `json:"active"`
}

type SubmitVoteRequest struct {
	Option int `json:"option"`
}

type PollOption struct {
	Option int    `json:"option"`
	Text   string `json:"text"`
	Votes  int64  `json:"votes"`
}

type PollResponse struct {
	PollID     string       `json:"poll_id"`
	OwnerID    string       `json:"owner_id"`
	Question   string       `json:"question"`
	Options    []PollOption `json:"options"`
	TotalVotes int64        `json:"total_votes"`
	Active     bool         `json:"active"`
	CreatedAt  string       `json:"created_at"`
	UpdatedAt  string       `json:"updated_at"`
}

type ListPollsResponse struct {
	Items []PollResponse `json:"items"`
}

type OptionPercentage struct {
	Option     int    `json:"option"`
	Text       string `json:"text"`
	Votes      int64  `json:"votes"`
	Percentage int    `json:"percentage"`
}

type PollResultsResponse struct {
	PollID     string             `json:"poll_id"`
	Question   string             `json:"question"`
	Active     bool               `json:"active"`
	TotalVotes int64              `json:"total_votes"`
	Options    []OptionPercentage `json:"options"`
}

type VoteResponse struct {
	PollID         string `json:"poll_id"`
	UserID         string `json:"user_id"`
	SelectedOption int    `json:"selected_option"`
	VotedAt        string `json:"voted_at"`
}

type SubmitVoteResponse struct {
	Vote    VoteResponse `json:"vote"`
	Outcome string       `json:"outcome"`
	Poll    PollResponse `json:"poll"`
}

type OptionTally struct {
	Option      int   `json:"option"`
	Counter     int64 `json:"counter"`
	LedgerVotes int64 `json:"ledger_votes"`
}

type TallyResponse struct {
	PollID       string        `json:"poll_id"`
	CounterTotal int64         `json:"counter_total"`
	LedgerTotal  int64         `json:"ledger_total"`
	Consistent   bool          `json:"consistent"`
	Options      []OptionTally `json:"options"`
}
