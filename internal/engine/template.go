package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"text/template"

	"github.com/shaiso/Questionary/internal/domain"
)

// Context — данные, доступные в выражении EXPRESSION.
//
//   - {{ .Answer }}                — ответ управляющего вопроса
//   - {{ index .Answers "key" }}   — ответ по natural key
type Context struct {
	// Answer — декодированный ответ управляющего вопроса.
	Answer any `json:"answer"`

	// Answers — декодированные ответы анкеты (natural key → значение).
	Answers map[string]any `json:"answers"`
}

// NewContext создаёт контекст вычисления условия.
func NewContext(answer any, answers map[string]any) *Context {
	if answers == nil {
		answers = make(map[string]any)
	}
	return &Context{
		Answer:  answer,
		Answers: answers,
	}
}

// templateFuncs — дополнительные функции для выражений.
var templateFuncs = template.FuncMap{
	// json — сериализует значение в JSON строку
	"json": func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return string(b)
	},

	// default — возвращает значение по умолчанию, если первый аргумент пустой
	"default": func(def, val any) any {
		if val == nil {
			return def
		}
		if s, ok := val.(string); ok && s == "" {
			return def
		}
		return val
	},

	// fromJSON — парсит JSON строку
	"fromJSON": func(s string) any {
		var result any
		if err := json.Unmarshal([]byte(s), &result); err != nil {
			return nil
		}
		return result
	},

	// has — содержит ли ответ-список значение (для ответа-скаляра — равенство)
	"has": func(answer, value any) bool {
		return matches(answer, value)
	},

	// str — строковое представление значения
	"str": func(v any) string {
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	},

	"contains":  strings.Contains,
	"hasPrefix": strings.HasPrefix,
	"hasSuffix": strings.HasSuffix,
	"lower":     strings.ToLower,
	"upper":     strings.ToUpper,
	"trim":      strings.TrimSpace,
}

// Render рендерит строковый шаблон с контекстом.
func Render(tmpl string, ctx *Context) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrConditionRender, err)
	}

	return buf.String(), nil
}

func parse(tmpl string) (*template.Template, error) {
	t, err := template.New("").Funcs(templateFuncs).Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConditionParse, err)
	}
	return t, nil
}

// conditionTemplate оборачивает выражение в if, чтобы получить bool.
func conditionTemplate(expr string) string {
	return fmt.Sprintf(`{{if %s}}true{{else}}false{{end}}`, unwrapExpression(expr))
}

// unwrapExpression снимает одну внешнюю пару {{ }} (включая {{- -}}):
// `{{ gt (len .Answer) 0 }}` и `gt (len .Answer) 0` равнозначны.
func unwrapExpression(expr string) string {
	expr = strings.TrimSpace(expr)
	if !strings.HasPrefix(expr, "{{") || !strings.HasSuffix(expr, "}}") || len(expr) < 4 {
		return expr
	}
	inner := expr[2 : len(expr)-2]
	inner = strings.TrimPrefix(inner, "- ")
	inner = strings.TrimSuffix(inner, " -")
	if strings.Contains(inner, "{{") || strings.Contains(inner, "}}") {
		return expr
	}
	return strings.TrimSpace(inner)
}

// ParseExpression проверяет, что выражение EXPRESSION синтаксически корректно.
func ParseExpression(expr string) error {
	if unwrapExpression(expr) == "" {
		return fmt.Errorf("%w: empty expression", ErrConditionParse)
	}
	_, err := parse(conditionTemplate(expr))
	return err
}

// RenderCondition вычисляет булево выражение.
// Пустое выражение считается выполненным.
func RenderCondition(expr string, ctx *Context) (bool, error) {
	if unwrapExpression(expr) == "" {
		return true, nil
	}

	result, err := Render(conditionTemplate(expr), ctx)
	if err != nil {
		return false, err
	}

	return result == "true", nil
}

// DecodeAnswer приводит сохранённый ответ к значению.
//
// Ответы хранятся так, как их прислал клиент: JSON ("true", "[\"a\"]",
// "\"text\"") или просто текст. Невалидный JSON возвращается строкой.
// Пустой ответ — пустая строка.
func DecodeAnswer(raw string) any {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// EvaluateCondition проверяет условие зависимости на ответе управляющего вопроса.
//
// EQUAL — ответ равен params (ответ-список должен содержать params).
// NOT_EQUAL — отрицание EQUAL.
// EXPRESSION — params содержит выражение Go template над Context.
func EvaluateCondition(cond domain.DependencyCondition, answer string, answers map[string]any) (bool, error) {
	decoded := DecodeAnswer(answer)

	switch cond.Operator {
	case domain.ConditionEqual:
		return matches(decoded, cond.Params), nil

	case domain.ConditionNotEqual:
		return !matches(decoded, cond.Params), nil

	case domain.ConditionExpression:
		expr, ok := cond.Params.(string)
		if !ok {
			return false, fmt.Errorf("%w: expression must be a string, got %T", ErrConditionParse, cond.Params)
		}
		return RenderCondition(expr, NewContext(decoded, answers))

	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownOperator, cond.Operator)
	}
}

// matches сравнивает ответ с ожидаемым значением.
// Для ответа-списка проверяется вхождение.
func matches(answer, expected any) bool {
	if list, ok := answer.([]any); ok {
		return slices.ContainsFunc(list, func(item any) bool {
			return valuesEqual(item, expected)
		})
	}
	return valuesEqual(answer, expected)
}

// valuesEqual сравнивает значения без учёта представления:
// 1, 1.0 и "1" равны; true и "true" равны.
func valuesEqual(a, b any) bool {
	return normalize(a) == normalize(b)
}

func normalize(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return fmt.Sprintf("%g", x)
	case float32:
		return fmt.Sprintf("%g", x)
	case int:
		return fmt.Sprintf("%d", x)
	case int64:
		return fmt.Sprintf("%d", x)
	default:
		return fmt.Sprint(x)
	}
}
