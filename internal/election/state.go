package election

// State — состояние экземпляра в выборах.
type State string

const (
	// StateInitializing — вычисляется score, создаётся запись в реестре.
	StateInitializing State = "INITIALIZING"

	// StateDormant — ожидание: в реестре уже есть primary.
	StateDormant State = "DORMANT"

	// StateContending — primary нет, экземпляр заявляет себя.
	StateContending State = "CONTENDING"

	// StatePrimary — экземпляр подтверждён как primary и планирует jobs.
	StatePrimary State = "PRIMARY"

	// StateSteppedDown — экземпляр потерял роль primary.
	// Следующий шаг всегда переводит в DORMANT.
	StateSteppedDown State = "STEPPED_DOWN"
)

// allStates — для метрик.
var allStates = []State{
	StateInitializing,
	StateDormant,
	StateContending,
	StatePrimary,
	StateSteppedDown,
}

// String возвращает строковое представление State.
func (s State) String() string {
	return string(s)
}
