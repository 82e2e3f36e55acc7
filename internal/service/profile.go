package service

import (
	"slices"
	"sync"
	"time"

	"apicourse/internal/apperr"
	"apicourse/internal/model"
)

// ProfileBook keeps people and their articles in memory.
type ProfileBook struct {
	mu         sync.RWMutex
	people     map[int64]model.Person
	articles   map[int64]model.Article
	nextPerson int64
	nextPost   int64
	now        func() time.Time
}

func NewProfileBook() *ProfileBook {
	return &ProfileBook{
		people:   make(map[int64]model.Person),
		articles: make(map[int64]model.Article),
		now:      time.Now,
	}
}

// NewSeededProfileBook returns a book holding two sample people.
func NewSeededProfileBook() *ProfileBook {
	b := NewProfileBook()
	phone := "+1234567890"
	lastLogin := time.Date(2023, 12, 1, 10, 30, 0, 0, time.UTC)
	b.people[1] = model.Person{
		ID:           1,
		Name:         "John Doe",
		Email:        "john@example.com",
		IsActive:     true,
		Role:         model.RoleAdmin,
		PasswordHash: "hashedpassword123",
		Phone:        &phone,
		Status:       model.StatusActive,
		CreatedAt:    time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
		LastLogin:    &lastLogin,
		Address: &model.Address{
			Street: "123 Main St", City: "New York", State: "NY", ZipCode: "10001", Country: "USA",
		},
		Preferences: map[string]any{"theme": "dark", "notifications": true},
		Tags:        []string{"admin", "power-user"},
	}
	b.people[2] = model.Person{
		ID:           2,
		Name:         "Jane Smith",
		Email:        "jane@example.com",
		Role:         model.RoleUser,
		PasswordHash: "hashedpassword456",
		Status:       model.StatusInactive,
		CreatedAt:    time.Date(2023, 2, 15, 14, 30, 0, 0, time.UTC),
		Preferences:  map[string]any{"theme": "light"},
		Tags:         []string{"user"},
	}
	b.nextPerson = 2
	return b
}

func (b *ProfileBook) AddPerson(p model.Person) model.Person {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextPerson++
	p.ID = b.nextPerson
	p.CreatedAt = b.now().UTC()
	if p.Status == "" {
		p.Status = model.StatusActive
	}
	b.people[p.ID] = p
	return p
}

func (b *ProfileBook) Person(id int64) (model.Person, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p, ok := b.people[id]
	if !ok {
		return model.Person{}, apperr.NotFound("user", id)
	}
	return p, nil
}

func (b *ProfileBook) People() []model.Person {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]model.Person, 0, len(b.people))
	for _, p := range b.people {
		out = append(out, p)
	}
	slices.SortFunc(out, func(x, y model.Person) int { return int(x.ID - y.ID) })
	return out
}

// ReplacePerson overwrites a person, keeping id and creation time.
func (b *ProfileBook) ReplacePerson(id int64, p model.Person) (model.Person, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	old, ok := b.people[id]
	if !ok {
		return model.Person{}, apperr.NotFound("user", id)
	}
	p.ID = id
	p.CreatedAt = old.CreatedAt
	if p.Status == "" {
		p.Status = old.Status
	}
	now := b.now().UTC()
	p.UpdatedAt = &now
	b.people[id] = p
	return p, nil
}

func (b *ProfileBook) PatchPerson(id int64, patch model.PersonPatch) (model.Person, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.people[id]
	if !ok {
		return model.Person{}, apperr.NotFound("user", id)
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.Age != nil {
		p.Age = *patch.Age
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	if patch.Role != nil {
		p.Role = *patch.Role
	}
	if patch.Bio != nil {
		p.Bio = patch.Bio
	}
	now := b.now().UTC()
	p.UpdatedAt = &now
	b.people[id] = p
	return p, nil
}

// AddArticle stores a new article. The author must exist.
func (b *ProfileBook) AddArticle(a model.Article) (model.Article, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.people[a.AuthorID]; !ok {
		return model.Article{}, apperr.BadRequest("AUTHOR_NOT_FOUND", "author not found")
	}
	b.nextPost++
	a.ID = b.nextPost
	a.CreatedAt = b.now().UTC()
	if a.Tags == nil {
		a.Tags = []string{}
	}
	b.articles[a.ID] = a
	return a, nil
}

// UpdateArticle replaces an article owned by userID.
func (b *ProfileBook) UpdateArticle(userID, postID int64, a model.Article) (model.Article, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.people[userID]; !ok {
		return model.Article{}, apperr.NotFound("user", userID)
	}
	old, ok := b.articles[postID]
	if !ok {
		return model.Article{}, apperr.NotFound("post", postID)
	}
	if old.AuthorID != userID {
		return model.Article{}, apperr.New(403, "NOT_POST_AUTHOR", "not authorized to update this post")
	}
	a.ID = postID
	a.CreatedAt = old.CreatedAt
	if a.Tags == nil {
		a.Tags = []string{}
	}
	now := b.now().UTC()
	a.UpdatedAt = &now
	b.articles[postID] = a
	return a, nil
}

func (b *ProfileBook) Articles() []model.Article {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]model.Article, 0, len(b.articles))
	for _, a := range b.articles {
		out = append(out, a)
	}
	slices.SortFunc(out, func(x, y model.Article) int { return int(x.ID - y.ID) })
	return out
}
