// Package existence проверяет, что во внешней БД есть строка
// с нужным значением. Используется для зависимостей jobs от данных.
//
// Тип хранилища берётся из DatabaseDependency.DBKind:
//   - "*sql" (postgresql, mysql, ...) — реляционный backend
//   - "mongo"                         — документный backend
//
// Любой другой тип или пустое поле — ошибка, зависимость не удовлетворена.
package existence
