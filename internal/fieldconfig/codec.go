package fieldconfig

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Encode сериализует конфигурацию в строку для хранения в БД.
func Encode(cfg Config) (string, error) {
	if cfg == nil {
		return "{}", nil
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal field config: %w", err)
	}
	return string(b), nil
}

// Decode восстанавливает конфигурацию из строки.
//
// Форма определяется dataType: значения накладываются на пустую
// конфигурацию этого типа, поэтому отсутствующие поля получают
// значения по умолчанию. Пустая строка даёт Blank(dataType).
func Decode(dataType DataType, raw string) (Config, error) {
	cfg := Blank(dataType)
	if strings.TrimSpace(raw) == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(raw), cfg); err != nil {
		return nil, fmt.Errorf("unmarshal %s config: %w", dataType, err)
	}
	return cfg, nil
}

// DecodeJSON — вариант Decode для json.RawMessage (тела запросов API).
func DecodeJSON(dataType DataType, raw json.RawMessage) (Config, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Blank(dataType), nil
	}
	return Decode(dataType, string(raw))
}
