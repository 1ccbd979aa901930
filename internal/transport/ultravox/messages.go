package ultravox

type dataMessage struct {
	Type    string  `json:"type"`
	State   string  `json:"state,omitempty"`
	Role    string  `json:"role,omitempty"`
	Medium  string  `json:"medium,omitempty"`
	Text    *string `json:"text,omitempty"`
	Delta   *string `json:"delta,omitempty"`
	Final   bool    `json:"final,omitempty"`
	Ordinal int     `json:"ordinal,omitempty"`
}

type userTextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
