// Package cli реализует административную утилиту exosphere.
//
// # Обзор
//
// CLI работает напрямую с хранилищем реестра (того же backend, что
// и планировщик) и не требует запущенного планировщика. Используется
// для просмотра реестра экземпляров и управления каталогом jobs.
//
// # Ключевые компоненты
//
// ## Client
//
// Обёртка над registry.Client и readiness.Evaluator. Dial открывает
// хранилище по config.Config, NewClient принимает готовый registry.Store.
//
//	client, err := cli.Dial(ctx, cfg, logger)
//	jobs, err := client.ListJobs(ctx)
//
// ## Catalog
//
// YAML-файл каталога jobs (gopkg.in/yaml.v3). ParseCatalog проверяет
// cron-выражения, trigger и обязательные поля зависимостей.
//
// ## Output
//
// Форматирование вывода: таблицы (text/tabwriter) по умолчанию
// или JSON с флагом --json. Данные пишутся в stdout, сообщения в stderr:
//
//	exosphere-cli jobs list --json | jq .
//
// ## Commands
//
//   - instances: list
//   - jobs: list, show, load, check, validate
//
// Каждая группа создаётся фабричной функцией (NewJobsCmd и т.д.),
// принимающей clientFn и outputFn, которые создают Client и Output
// после парсинга PersistentFlags.
package cli
