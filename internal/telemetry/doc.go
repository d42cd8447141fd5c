// Package telemetry — логирование и метрики бинарников questionary-*.
//
// logging.go настраивает slog (JSON или text, уровень из LOG_LEVEL) и
// хранит логгер в контексте. metrics.go объявляет счётчики Prometheus:
// операции сервисов, HTTP запросы, события, проходы janitor.
package telemetry
