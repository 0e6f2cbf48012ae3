package bot

import "github.com/bwmarrin/discordgo"

// Responder is how a command handler answers its interaction.
// Handlers never touch the session directly, so tests can pass a MockResponder.
type Responder interface {
	Respond(response *discordgo.InteractionResponse) error
}

// DiscordResponder answers through the session that received the interaction.
type DiscordResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

// NewDiscordResponder binds a Responder to interaction i on session s.
func NewDiscordResponder(s *discordgo.Session, i *discordgo.Interaction) *DiscordResponder {
	return &DiscordResponder{
		session:     s,
		interaction: i,
	}
}

// Respond calls InteractionRespond for the bound interaction.
func (r *DiscordResponder) Respond(response *discordgo.InteractionResponse) error {
	return r.session.InteractionRespond(r.interaction, response)
}

// MockResponder keeps the last response and a count of all of them.
// Respond returns Err.
type MockResponder struct {
	LastResponse *discordgo.InteractionResponse
	Responses    int
	Err          error
}

// Respond implements Responder.
func (m *MockResponder) Respond(response *discordgo.InteractionResponse) error {
	m.LastResponse = response
	m.Responses++
	return m.Err
}
