package service

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apicourse/internal/apperr"
	"apicourse/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestItemStore_CRUD(t *testing.T) {
	s := NewItemStore()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return t0 }

	a := s.Create(model.ItemInput{Name: "Laptop", Price: ptr(999.0), Tags: []string{"tech"}})
	b := s.Create(model.ItemInput{Name: "Mouse", Price: ptr(20.0)})
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.Equal(t, []string{}, b.Tags)
	assert.Len(t, s.List(), 2)

	require.NoError(t, s.Delete(a.ID))
	c := s.Create(model.ItemInput{Name: "Keyboard", Price: ptr(50.0)})
	assert.Equal(t, int64(3), c.ID, "ids are not reused after delete")

	s.now = func() time.Time { return t0.Add(time.Hour) }
	replaced, err := s.Replace(b.ID, model.ItemInput{Name: "Trackball", Price: ptr(35.0)})
	require.NoError(t, err)
	assert.Equal(t, "Trackball", replaced.Name)
	assert.Equal(t, t0, replaced.CreatedAt)
	require.NotNil(t, replaced.UpdatedAt)
	assert.Equal(t, t0.Add(time.Hour), *replaced.UpdatedAt)

	patched, err := s.Patch(b.ID, model.ItemPatch{Price: ptr(30.0)})
	require.NoError(t, err)
	assert.Equal(t, "Trackball", patched.Name)
	assert.Equal(t, 30.0, patched.Price)
}

func TestItemStore_NotFound(t *testing.T) {
	s := NewItemStore()

	_, err := s.Get(42)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, e.Status)
	assert.Equal(t, "ITEM_NOT_FOUND", e.Code)

	_, err = s.Replace(42, model.ItemInput{Name: "x", Price: ptr(1.0)})
	assert.Error(t, err)
	_, err = s.Patch(42, model.ItemPatch{})
	assert.Error(t, err)
	assert.Error(t, s.Delete(42))
}

func TestItemStore_Search(t *testing.T) {
	s := NewItemStore()
	s.Create(model.ItemInput{Name: "Gaming Laptop", Price: ptr(1500.0), Tags: []string{"tech", "gaming"}})
	s.Create(model.ItemInput{Name: "Office Laptop", Price: ptr(700.0), Tags: []string{"tech", "work"}})
	s.Create(model.ItemInput{Name: "Desk", Price: ptr(200.0), Tags: []string{"furniture"}})

	tests := []struct {
		name string
		f    ItemSearch
		want []string
	}{
		{"all", ItemSearch{}, []string{"Gaming Laptop", "Office Laptop", "Desk"}},
		{"name case-insensitive", ItemSearch{Name: "LAPTOP"}, []string{"Gaming Laptop", "Office Laptop"}},
		{"price range", ItemSearch{MinPrice: ptr(100.0), MaxPrice: ptr(800.0)}, []string{"Office Laptop", "Desk"}},
		{"any tag", ItemSearch{Tags: []string{"gaming", "furniture"}}, []string{"Gaming Laptop", "Desk"}},
		{"no match", ItemSearch{Name: "chair"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var names []string
			for _, it := range s.Search(tt.f) {
				names = append(names, it.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}
