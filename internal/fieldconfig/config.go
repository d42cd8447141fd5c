package fieldconfig

// Config — конфигурация поля, вариант зависит от DataType.
//
// Все варианты встраивают Base, поэтому общие настройки
// (подпись, обязательность, подсказка) доступны через Common().
type Config interface {
	Common() *Base
}

// Base — общие настройки любого поля.
// Используется как конфигурация по умолчанию для неизвестных типов.
type Base struct {
	SmallLabel string `json:"small_label"`
	Required   bool   `json:"required"`
	Tooltip    string `json:"tooltip"`
}

// Common реализует Config.
func (b *Base) Common() *Base {
	return b
}

// BooleanConfig — конфигурация для BOOLEAN.
type BooleanConfig struct {
	Base
}

// DateConfig — конфигурация для DATE.
type DateConfig struct {
	Base
}

// EmbellishmentConfig — конфигурация для EMBELLISHMENT.
type EmbellishmentConfig struct {
	Base

	// Plain — текстовое представление (для PDF и превью).
	Plain string `json:"plain"`

	// HTML — разметка для отображения в форме.
	HTML string `json:"html"`

	// OmitFromPDF — не выводить блок при генерации PDF.
	OmitFromPDF bool `json:"omit_from_pdf"`
}

// FileUploadConfig — конфигурация для FILE_UPLOAD.
type FileUploadConfig struct {
	Base

	// FileType — допустимые расширения или MIME-типы. Пустой список — любые.
	FileType []string `json:"file_type"`

	// MaxFiles — максимум файлов. 0 — без ограничения.
	MaxFiles int `json:"max_files"`
}

// SelectionFromOptionsConfig — конфигурация для SELECTION_FROM_OPTIONS.
type SelectionFromOptionsConfig struct {
	Base

	// Variant — способ отображения: "radio" или "dropdown".
	Variant string `json:"variant"`

	// Options — варианты ответа.
	Options []string `json:"options"`

	// IsMultipleSelect — разрешён выбор нескольких вариантов.
	IsMultipleSelect bool `json:"is_multiple_select"`
}

// TextInputConfig — конфигурация для TEXT_INPUT.
type TextInputConfig struct {
	Base

	// Min, Max — ограничения длины. nil — без ограничения.
	Min *int `json:"min"`
	Max *int `json:"max"`

	Multiline   bool   `json:"multiline"`
	Placeholder string `json:"placeholder"`

	// IsHTMLQuestion — текст вопроса задаётся HTML-разметкой HTMLQuestion.
	IsHTMLQuestion bool   `json:"is_html_question"`
	HTMLQuestion   string `json:"html_question,omitempty"`
}

// Варианты отображения SELECTION_FROM_OPTIONS.
const (
	SelectionVariantRadio    = "radio"
	SelectionVariantDropdown = "dropdown"
)

// blankConstructors — соответствие тип → пустая конфигурация.
// Каждый тип из DataTypes() обязан иметь запись (проверяется тестом).
var blankConstructors = map[DataType]func() Config{
	DataTypeBoolean: func() Config {
		return &BooleanConfig{}
	},
	DataTypeDate: func() Config {
		return &DateConfig{}
	},
	DataTypeEmbellishment: func() Config {
		return &EmbellishmentConfig{
			Plain: "New embellishment",
			HTML:  "<p>New embellishment</p>",
		}
	},
	DataTypeFileUpload: func() Config {
		return &FileUploadConfig{FileType: []string{}}
	},
	DataTypeSelectionFromOptions: func() Config {
		return &SelectionFromOptionsConfig{
			Variant: SelectionVariantRadio,
			Options: []string{},
		}
	},
	DataTypeTextInput: func() Config {
		return &TextInputConfig{}
	},
}

// Blank возвращает пустую конфигурацию для типа.
// Для неизвестного типа возвращается *Base, никогда не nil.
func Blank(dataType DataType) Config {
	if ctor, ok := blankConstructors[dataType]; ok {
		return ctor()
	}
	return &Base{}
}
