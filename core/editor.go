package core

// Language tags a text model for the host editor's syntax mode.
type Language string

const (
	// LanguageScript marks input buffers.
	LanguageScript Language = "javascript"
	// LanguageResult marks rendered results.
	LanguageResult Language = "json"
)

// TextModel is a text buffer owned by the host editor. Models must be
// disposed exactly once by whoever created them.
type TextModel interface {
	Value() string
	SetValue(text string)
	Dispose()
}

// EditorHost creates text models.
type EditorHost interface {
	CreateModel(text string, lang Language) TextModel
}

// EditorView is the pair of widgets showing the selected buffer. A nil model
// clears the widget.
type EditorView interface {
	SetInputModel(model TextModel)
	SetOutputModel(model TextModel)
}
