package fieldconfig

// DataType — тип вопроса в шаблоне.
//
// От типа зависит форма конфигурации (Config) и то,
// как клиент интерпретирует сериализованный ответ.
type DataType string

const (
	// DataTypeBoolean — флажок да/нет.
	DataTypeBoolean DataType = "BOOLEAN"

	// DataTypeDate — выбор даты.
	DataTypeDate DataType = "DATE"

	// DataTypeEmbellishment — оформление (текст/HTML), ответа не требует.
	DataTypeEmbellishment DataType = "EMBELLISHMENT"

	// DataTypeFileUpload — загрузка файлов.
	DataTypeFileUpload DataType = "FILE_UPLOAD"

	// DataTypeSelectionFromOptions — выбор из списка вариантов.
	DataTypeSelectionFromOptions DataType = "SELECTION_FROM_OPTIONS"

	// DataTypeTextInput — текстовое поле.
	DataTypeTextInput DataType = "TEXT_INPUT"
)

// DataTypes возвращает все известные типы в стабильном порядке.
func DataTypes() []DataType {
	return []DataType{
		DataTypeBoolean,
		DataTypeDate,
		DataTypeEmbellishment,
		DataTypeFileUpload,
		DataTypeSelectionFromOptions,
		DataTypeTextInput,
	}
}

// String возвращает строковое представление DataType.
func (t DataType) String() string {
	return string(t)
}

// IsKnown возвращает true, если для типа есть собственная конфигурация.
func (t DataType) IsKnown() bool {
	_, ok := blankConstructors[t]
	return ok
}

// ParseDataType парсит строку в DataType.
// Второе значение false, если тип неизвестен.
func ParseDataType(s string) (DataType, bool) {
	t := DataType(s)
	return t, t.IsKnown()
}
