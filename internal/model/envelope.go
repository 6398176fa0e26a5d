package model

// Envelope is the outbound unit submitted to the push endpoint. The
// composer produces a template with To left empty; the dispatcher binds
// one copy per destination token.
type Envelope struct {
	To        string                 `json:"to"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Sound     string                 `json:"sound,omitempty"`
	Priority  string                 `json:"priority,omitempty"`
	ChannelID string                 `json:"channelId,omitempty"`
	Android   *AndroidHints          `json:"android,omitempty"`
	IOS       *IOSHints              `json:"ios,omitempty"`
}

type AndroidHints struct {
	ChannelID string `json:"channelId,omitempty"`
	Icon      string `json:"icon,omitempty"`
	Color     string `json:"color,omitempty"`
	Priority  string `json:"priority,omitempty"`
}

type IOSHints struct {
	Sound      string `json:"sound,omitempty"`
	CategoryID string `json:"categoryId,omitempty"`
}

// Bind returns a copy of the template addressed to a single token. The
// data map is cloned so concurrent submissions never share state.
func (e *Envelope) Bind(token string) *Envelope {
	bound := *e
	bound.To = token
	if e.Data != nil {
		data := make(map[string]interface{}, len(e.Data))
		for k, v := range e.Data {
			data[k] = v
		}
		bound.Data = data
	}
	return &bound
}
