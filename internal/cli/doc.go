// Package cli реализует инструмент командной строки questionaryctl.
//
// # Обзор
//
// CLI — клиентская утилита для Questionary API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для API. Инкапсулирует HTTP-запросы, заголовок
// X-User-Id, парсинг ответов (data/list/error) и ошибки (APIError).
//
//	client := cli.NewClient("http://localhost:8080", "42")
//	templates, err := client.ListTemplates(cli.ListTemplatesOpts{})
//
// ## Output
//
// Форматирование вывода: таблицы (text/tabwriter) по умолчанию,
// JSON с флагом --json. Данные — в stdout, сообщения — в stderr.
//
// ## Import
//
// ParseTemplateFile читает YAML-описание шаблона (gopkg.in/yaml.v3),
// ImportTemplate создаёт по нему шаблон, топики, вопросы и зависимости.
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - template: list, create, show, archive, delete, attach, detach, import
//   - question: create, show, update, delete
//   - questionary: create, show, steps, answer, complete, clone, delete
//
// Каждая группа создаётся фабричной функцией (NewTemplateCmd и т.д.),
// принимающей clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
