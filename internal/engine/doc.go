// Package engine содержит движок зависимостей полей анкеты.
//
// Включает:
//   - dag.go        — граф зависимостей между вопросами шаблона
//   - validate.go   — проверка правил зависимостей
//   - template.go   — вычисление условий (EQUAL, NOT_EQUAL, EXPRESSION)
//   - visibility.go — видимость полей анкеты по ответам
//
// Engine ничего не знает о хранилище: он получает relations шаблона
// и шаги анкеты и работает только с ними.
package engine
