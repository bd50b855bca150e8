package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wallboard/wallboard_screen/internal/user"
)

func createTestProject() *Project {
	return &Project{
		ID:    1,
		Token: "abc123",
		Name:  "Ops wall",
		GridProperties: GridProperties{
			MaxColumn:    5,
			WidgetHeight: 360,
		},
		Widgets: []*ProjectWidget{
			{ID: 1, State: WidgetStateRunning, InstantiateHTML: "<div>1</div>"},
			{ID: 2, State: WidgetStateRunning, InstantiateHTML: "<div>2</div>"},
		},
		Users: []user.User{{Username: "jdoe"}},
	}
}

func TestStore_ApplyWidgetUpdate_ShouldOnlyTouchTargetWidget(t *testing.T) {
	// given
	store := NewStore()
	p := createTestProject()
	store.SetCurrentProject(p)
	first := p.Widgets[0]
	second := p.Widgets[1]

	// when
	found := store.ApplyWidgetUpdate(2, "<div>warn</div>", WidgetStateWarning)

	// then
	assert.True(t, found)
	assert.Equal(t, WidgetStateRunning, first.State)
	assert.Equal(t, "<div>1</div>", first.InstantiateHTML)
	assert.Equal(t, WidgetStateWarning, second.State)
	assert.Equal(t, "<div>warn</div>", second.InstantiateHTML)
	assert.Same(t, second, store.CurrentProject().Widget(2))
}

func TestStore_ApplyWidgetUpdate_ShouldIgnoreUnknownWidget(t *testing.T) {
	// given
	store := NewStore()
	store.SetCurrentProject(createTestProject())

	// when
	found := store.ApplyWidgetUpdate(99, "<div>x</div>", WidgetStateError)

	// then
	assert.False(t, found)
	for _, w := range store.CurrentProject().Widgets {
		assert.Equal(t, WidgetStateRunning, w.State)
	}
}

func TestStore_ApplyWidgetUpdate_WithoutProject_ShouldBeNoop(t *testing.T) {
	store := NewStore()

	assert.NotPanics(t, func() {
		assert.False(t, store.ApplyWidgetUpdate(1, "", WidgetStateStopped))
	})
	assert.Nil(t, store.CurrentProject())
}

func TestStore_ApplyWidgetUpdate_ShouldNotifyWatchers(t *testing.T) {
	// given
	store := NewStore()
	store.SetCurrentProject(createTestProject())
	notified := 0
	store.WatchCurrentProject(func(*Project) { notified++ })
	notified = 0

	// when
	store.ApplyWidgetUpdate(1, "<div>new</div>", WidgetStateRunning)

	// then
	assert.Equal(t, 1, notified)
}

func TestStore_ApplyProjectReplace_ShouldSwapWholeProject(t *testing.T) {
	// given
	store := NewStore()
	store.SetCurrentProject(createTestProject())
	replacement := createTestProject()
	replacement.Widgets[0].Row = 3

	// when
	store.ApplyProjectReplace(replacement)

	// then
	assert.Same(t, replacement, store.CurrentProject())
	assert.Equal(t, 3, store.CurrentProject().Widgets[0].Row)
}

func TestStore_UpsertOwnedProject_ShouldRespectMembership(t *testing.T) {
	// given
	store := NewStore()
	other := &Project{ID: 7, Token: "other"}
	p := createTestProject()
	store.SetOwnedProjects([]*Project{other, p})
	jdoe := &user.User{Username: "jdoe"}

	// when
	updated := createTestProject()
	updated.Name = "Renamed"
	store.UpsertOwnedProject(updated, MemberOf(jdoe))

	// then
	owned := store.OwnedProjects()
	assert.Len(t, owned, 2)
	assert.Equal(t, "Renamed", owned[1].Name)

	// when membership is revoked
	revoked := createTestProject()
	revoked.Users = nil
	store.UpsertOwnedProject(revoked, MemberOf(jdoe))

	// then
	assert.Equal(t, []*Project{other}, store.OwnedProjects())
}

func TestStore_RemoveOwnedProject_ShouldDropById(t *testing.T) {
	// given
	store := NewStore()
	store.SetOwnedProjects([]*Project{{ID: 1}, {ID: 2}})

	// when
	store.RemoveOwnedProject(1)
	store.RemoveOwnedProject(42)

	// then
	assert.Len(t, store.OwnedProjects(), 1)
	assert.Equal(t, int64(2), store.OwnedProjects()[0].ID)
}

func TestMemberOf_NilUser_ShouldNeverMatch(t *testing.T) {
	assert.False(t, MemberOf(nil)(createTestProject()))
	assert.True(t, MemberOf(&user.User{Username: "jdoe"})(createTestProject()))
}

func TestStore_UpsertOwnedProject_ShouldNotShareWidgetsWithCurrentProject(t *testing.T) {
	// given
	store := NewStore()
	p := createTestProject()
	store.ApplyProjectReplace(p)
	store.UpsertOwnedProject(p, nil)
	var ownedNotifications int
	store.WatchOwnedProjects(func([]*Project) { ownedNotifications++ })

	// when
	store.ApplyWidgetUpdate(2, "<div>new</div>", WidgetStateWarning)

	// then
	assert.Equal(t, "<div>new</div>", store.CurrentProject().Widget(2).InstantiateHTML)
	owned := store.OwnedProjects()
	assert.NotSame(t, store.CurrentProject(), owned[0])
	assert.Equal(t, "<div>2</div>", owned[0].Widget(2).InstantiateHTML)
	assert.Equal(t, WidgetStateRunning, owned[0].Widget(2).State)
	assert.Equal(t, 1, ownedNotifications)
}
