package flow

// Option is one selectable button in an outbound prompt.
type Option struct {
	Label string
	Key   string
}

// Prompt is the structured outbound message the transport renders. The flow
// engine never formats presentation markup, only text and option rows.
type Prompt struct {
	Text    string
	Options [][]Option
}

func row(opts ...Option) []Option {
	return opts
}

func opt(label, key string) Option {
	return Option{Label: label, Key: key}
}

// withBack appends a standard back row to the prompt's options.
func (p Prompt) withBack() Prompt {
	p.Options = append(p.Options, row(opt("⬅️ Назад", keyBack)))
	return p
}
