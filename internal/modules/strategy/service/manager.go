package service

import (
	"sort"
	"sync"

	"exec_bot/internal/models"
	"exec_bot/pkg/logger"
)

// Manager: реестр активных стратегий. Порядок регистрации сохраняется:
// в нём идут List и ордера из Tick.
type Manager struct {
	mu    sync.RWMutex
	byKey map[string]Strategy
	order []string
}

func NewManager() *Manager {
	return &Manager{byKey: make(map[string]Strategy)}
}

// Register добавляет стратегию, если имя свободно; существующую не трогает.
func (m *Manager) Register(s Strategy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byKey[s.Name()]; ok {
		return models.ErrDuplicateStrategy
	}
	m.byKey[s.Name()] = s
	m.order = append(m.order, s.Name())
	logger.Info("[STRAT] registered %s (%s %s)", s.Name(), s.Kind(), s.Symbol())
	return nil
}

// Remove останавливает дальнейшие тики. Уже отправленные ордера не отменяются.
func (m *Manager) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byKey[name]; !ok {
		return models.ErrStrategyNotFound
	}
	delete(m.byKey, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	logger.Info("[STRAT] removed %s", name)
	return nil
}

func (m *Manager) Toggle(name string, active bool) error {
	m.mu.RLock()
	s, ok := m.byKey[name]
	m.mu.RUnlock()
	if !ok {
		return models.ErrStrategyNotFound
	}
	s.SetActive(active)
	logger.Info("[STRAT] %s active=%v", name, active)
	return nil
}

func (m *Manager) Get(name string) (Strategy, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byKey[name]
	return s, ok
}

// Tick раздаёт снапшот активным стратегиям символа и склеивает их ордера.
func (m *Manager) Tick(snap models.Snapshot) []models.OrderRequest {
	var out []models.OrderRequest
	for _, s := range m.forSymbol(snap.Symbol) {
		if !s.IsActive() {
			continue
		}
		out = append(out, s.OnSnapshot(snap)...)
	}
	return out
}

func (m *Manager) forSymbol(symbol string) []Strategy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]Strategy, 0, len(m.order))
	for _, name := range m.order {
		if s := m.byKey[name]; s.Symbol() == symbol {
			res = append(res, s)
		}
	}
	return res
}

func (m *Manager) List() []models.StrategyInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.StrategyInfo, 0, len(m.order))
	for _, name := range m.order {
		s := m.byKey[name]
		out = append(out, models.StrategyInfo{
			Name:   s.Name(),
			Type:   s.Kind(),
			Symbol: s.Symbol(),
			Active: s.IsActive(),
		})
	}
	return out
}

// Symbols: символы, по которым есть хотя бы одна стратегия (для раннеров).
func (m *Manager) Symbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, s := range m.byKey {
		seen[s.Symbol()] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for sym := range seen {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
