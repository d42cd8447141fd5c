// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — EventSink: публикация доменных событий
//   - consumer.go   — потребление событий из очередей
//
// Доменные события публикуются в topic exchange questionary.events
// с routing key по типу события: ANSWER_UPDATED → answer.updated.
//
// Exchanges:
//   - questionary.events — доменные события анкет и каталога
//   - questionary.dlq    — dead letter queue
package mq
