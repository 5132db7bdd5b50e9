// Package probe измеряет задержку до хоста хранилища реестра.
//
// Результат используется только для вычисления score экземпляра
// при выборах ведущего планировщика.
//
// Неудачный замер возвращает 0, а Score считает такой замер
// наихудшим (штраф), чтобы недоступный экземпляр не выглядел лучшим.
package probe
