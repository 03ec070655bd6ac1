package domain

type (
	ChannelID string
	TeamID    string
)

type Channel struct {
	ID     ChannelID `json:"id"`
	TeamID TeamID    `json:"team_id,omitempty"`
	Name   string    `json:"name"`
}
