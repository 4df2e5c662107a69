package services

import (
	"testing"
	"time"

	"fitpass_backend/internal/models"
	"fitpass_backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNews struct {
	repositories.NewsRepository
	items   map[int64]*models.News
	created []models.News
	listAt  time.Time
}

func (f *fakeNews) GetNewsByID(id int64) (*models.News, error) {
	n, ok := f.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (f *fakeNews) GetPublishedNews(_ models.NewsFilters, now time.Time) ([]models.News, error) {
	f.listAt = now
	return []models.News{}, nil
}

func (f *fakeNews) CreateNews(_ repositories.SQLExecutor, n *models.News) (int64, error) {
	n.ID = int64(len(f.created) + 1)
	f.created = append(f.created, *n)
	return n.ID, nil
}

func newNewsFixture(t *testing.T) (*newsService, *fakeNews) {
	db, _ := newTxMock(t)
	expired := testNow.Add(-time.Hour)
	later := testNow.Add(24 * time.Hour)
	news := &fakeNews{items: map[int64]*models.News{
		1: {ID: 1, Title: "Live", Type: "event", Status: models.NewsStatusActive, PublishedAt: testNow.Add(-time.Hour), ExpiresAt: &later},
		2: {ID: 2, Title: "Draft", Type: "event", Status: models.NewsStatusDraft, PublishedAt: testNow.Add(-time.Hour)},
		3: {ID: 3, Title: "Scheduled", Type: "event", Status: models.NewsStatusActive, PublishedAt: testNow.Add(time.Hour)},
		4: {ID: 4, Title: "Past", Type: "event", Status: models.NewsStatusActive, PublishedAt: testNow.Add(-48 * time.Hour), ExpiresAt: &expired},
		5: {ID: 5, Title: "Ends now", Type: "event", Status: models.NewsStatusActive, PublishedAt: testNow.Add(-48 * time.Hour), ExpiresAt: &testNow},
	}}
	owner := int64(77)
	clubs := &fakeClubs{clubs: map[int64]*models.Club{5: {ID: 5, OwnerID: &owner, IsActive: true}}}
	svc := NewNewsService(news, clubs, db).(*newsService)
	svc.now = func() time.Time { return testNow }
	return svc, news
}

func TestGetNewsHidesUnpublishedItems(t *testing.T) {
	svc, _ := newNewsFixture(t)

	n, err := svc.GetNews(1)
	require.NoError(t, err)
	assert.Equal(t, "Live", n.Title)

	for _, id := range []int64{2, 3, 4, 5, 99} {
		_, err := svc.GetNews(id)
		assert.ErrorIs(t, err, ErrNewsNotFound, "news %d", id)
	}
}

func TestListNewsUsesCurrentTime(t *testing.T) {
	svc, news := newNewsFixture(t)

	_, err := svc.ListNews(models.NewsFilters{})
	require.NoError(t, err)
	assert.Equal(t, testNow, news.listAt)
}

func TestCreateNewsOwnership(t *testing.T) {
	svc, news := newNewsFixture(t)
	club := int64(5)

	_, err := svc.CreateNews(Actor{UserID: 78, Role: models.RoleClub}, models.NewsPayload{ClubID: &club, Title: "Öppet hus", Type: "event"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.CreateNews(Actor{UserID: 77, Role: models.RoleClub}, models.NewsPayload{Title: "Global", Type: "update"})
	assert.ErrorIs(t, err, ErrForbidden)

	n, err := svc.CreateNews(Actor{UserID: 77, Role: models.RoleClub}, models.NewsPayload{ClubID: &club, Title: " Öppet hus ", Type: "event"})
	require.NoError(t, err)
	assert.Equal(t, "Öppet hus", n.Title)
	assert.Equal(t, models.NewsStatusActive, n.Status)
	assert.Equal(t, testNow, n.PublishedAt)

	_, err = svc.CreateNews(Actor{UserID: 1, Role: models.RoleAdmin}, models.NewsPayload{Title: "Global", Type: "update"})
	require.NoError(t, err)
	assert.Len(t, news.created, 2)
}

func TestCreateNewsValidation(t *testing.T) {
	svc, news := newNewsFixture(t)
	admin := Actor{UserID: 1, Role: models.RoleAdmin}
	before := testNow.Add(-time.Minute)
	expired := models.NewsStatusExpired

	cases := map[string]models.NewsPayload{
		"blank title":        {Title: "  ", Type: "event"},
		"unknown type":       {Title: "Hej", Type: "gossip"},
		"expired status":     {Title: "Hej", Type: "event", Status: &expired},
		"expires before pub": {Title: "Hej", Type: "event", ExpiresAt: &before},
	}
	for name, payload := range cases {
		_, err := svc.CreateNews(admin, payload)
		assert.ErrorIs(t, err, ErrNewsValidation, name)
	}
	assert.Empty(t, news.created)
}

func TestCreateNewsUnknownClub(t *testing.T) {
	svc, _ := newNewsFixture(t)
	club := int64(99)

	_, err := svc.CreateNews(Actor{UserID: 1, Role: models.RoleAdmin}, models.NewsPayload{ClubID: &club, Title: "Hej", Type: "event"})
	assert.ErrorIs(t, err, ErrClubNotFound)
}
