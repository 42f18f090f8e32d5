package core

// Renderer formats a decoded result value into display text.
type Renderer interface {
	Render(value any) string
}
