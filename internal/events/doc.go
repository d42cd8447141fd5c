// Package events публикует доменные события мутаций.
//
// Мутация оборачивается через Wrap: после выполнения из результата
// формируется Event (ключ берётся из объявленного типа результата через
// Subject.EventKey) и передаётся в Sink. Ошибка публикации логируется
// и никогда не меняет результат мутации.
//
// Реализации Sink:
//   - ChannelSink — in-process очередь с обработчиками
//   - Fanout      — рассылка в несколько sink'ов
//   - NopSink     — ничего не делает (тесты, CLI)
//   - mq.EventSink — RabbitMQ (пакет mq)
package events
