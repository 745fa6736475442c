package http

type EnrollMemberRequest struct {
	UserID string `json:"user_id"`
}

type MembershipResponse struct {
	MembershipID string `json:"membership_id"`
	SocietyID    string `json:"society_id"`
	UserID       string `json:"user_id"`
	Status       string `json:"status"`
	JoinedAt     string `json:"joined_at"`
	RemovedAt    string `json:"removed_at,omitempty"`
}

type MemberListResponse struct {
	SocietyID string               `json:"society_id"`
	Total     int                  `json:"total"`
	Items     []MembershipResponse `json:"items"`
}

type MembershipCheckResponse struct {
	SocietyID string `json:"society_id"`
	UserID    string `json:"user_id"`
	Active    bool   `json:"active"`
}
