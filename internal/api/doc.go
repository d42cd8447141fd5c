// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go             — Handler с DI (сервисы каталога и анкет, logger)
//   - routes.go              — регистрация маршрутов
//   - middleware.go          — middleware (logging, recovery, metrics, actor)
//   - response.go            — унифицированные JSON-ответы и отображение отказов в статусы
//   - dto.go                 — Data Transfer Objects (request)
//   - template_handler.go    — обработчики для /templates и /topics
//   - question_handler.go    — обработчики для /questions
//   - questionary_handler.go — обработчики для /questionaries
//
// Ответы — доменные типы в конверте {"data": ...}; ошибки —
// {"error": {"code", "message"}}, где code — причина отказа сервиса.
package api
