package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/paper2blog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversionStore(t *testing.T) {
	s := New()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, ok := s.Get("missing")
	assert.False(t, ok)

	s.Set("old", &models.ConversionRecord{ID: "old", CreatedAt: now.Add(-time.Hour)})
	s.Set("new", &models.ConversionRecord{ID: "new", CreatedAt: now})
	s.Set("b", &models.ConversionRecord{ID: "b", CreatedAt: now.Add(-time.Minute)})
	s.Set("a", &models.ConversionRecord{ID: "a", CreatedAt: now.Add(-time.Minute)})

	got, ok := s.Get("new")
	require.True(t, ok)
	assert.Equal(t, "new", got.ID)

	var ids []string
	for _, r := range s.List() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"new", "a", "b", "old"}, ids)

	s.Delete("new")
	_, ok = s.Get("new")
	assert.False(t, ok)
	assert.Len(t, s.List(), 3)
}

func TestConversionStoreConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("conv-%d", i)
			s.Set(id, &models.ConversionRecord{ID: id, CreatedAt: time.Now()})
			s.Get(id)
			s.List()
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.List(), 20)
}
