// Package janitor удаляет заброшенные черновики анкет по cron-расписанию.
//
// Черновик считается заброшенным, если он старше Retention, в нём нет
// ни одного ответа и от него не клонировались другие анкеты.
//
// Компоненты:
//   - cron.go    — разбор и проверка cron-выражений
//   - janitor.go — Sweep (один проход) и Start (цикл по расписанию)
//
// При нескольких экземплярах проход выполняет только владелец
// advisory-блокировки (см. repo.AdvisoryLock).
package janitor
