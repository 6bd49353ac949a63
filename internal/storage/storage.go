package storage

import (
	"sort"
	"sync"

	"github.com/lehigh-university-libraries/paper2blog/internal/models"
)

// ConversionStore keeps the conversions made by the running server.
type ConversionStore struct {
	conversions map[string]*models.ConversionRecord
	mu          sync.RWMutex
}

func New() *ConversionStore {
	return &ConversionStore{
		conversions: make(map[string]*models.ConversionRecord),
	}
}

func (s *ConversionStore) Get(id string) (*models.ConversionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, exists := s.conversions[id]
	return record, exists
}

func (s *ConversionStore) Set(id string, record *models.ConversionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversions[id] = record
}

// List returns every record, newest first.
func (s *ConversionStore) List() []*models.ConversionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.ConversionRecord, 0, len(s.conversions))
	for _, v := range s.conversions {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (s *ConversionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversions, id)
}
