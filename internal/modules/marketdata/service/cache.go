package service

import (
	"sort"
	"sync"

	"exec_bot/internal/models"
)

// Cache: последний снапшот по каждому символу. Пишут поллер и стрим, читают все.
type Cache struct {
	mu   sync.RWMutex
	last map[string]models.Snapshot
}

func NewCache() *Cache {
	return &Cache{last: make(map[string]models.Snapshot)}
}

// Put сохраняет снапшот, если он не старше уже сохранённого.
func (c *Cache) Put(s models.Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.last[s.Symbol]; ok && s.Time.Before(prev.Time) {
		return false
	}
	c.last[s.Symbol] = s
	return true
}

func (c *Cache) Last(symbol string) (models.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.last[symbol]
	return s, ok
}

func (c *Cache) Symbols() []string {
	c.mu.RLock()
	out := make([]string, 0, len(c.last))
	for s := range c.last {
		out = append(out, s)
	}
	c.mu.RUnlock()
	sort.Strings(out)
	return out
}
