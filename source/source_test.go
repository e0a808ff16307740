package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsphweid/keystream/model"
)

func connected(id string) model.Source {
	return model.Source{ID: id, Name: id, State: model.Connected}
}

func TestAccept(t *testing.T) {
	ev := model.NoteEvent{SourceID: "a"}

	assert := assert.New(t)
	assert.True(Accept(ev, ""))
	assert.True(Accept(ev, "a"))
	assert.False(Accept(ev, "b"))
}

func TestAutoSelectSingleSource(t *testing.T) {
	r := NewRegistry()
	r.Update([]model.Source{connected("a")})

	id, ok := r.AutoSelect()
	assert.True(t, ok)
	assert.Equal(t, "a", id)
	assert.Equal(t, "a", r.Selected())

	_, ok = r.AutoSelect()
	assert.False(t, ok)
}

func TestNoAutoSelectWithSeveralSources(t *testing.T) {
	r := NewRegistry()
	r.Update([]model.Source{connected("a"), connected("b")})

	_, ok := r.AutoSelect()
	assert.False(t, ok)
	assert.Equal(t, "", r.Selected())
}

func TestUpdateMarksMissingDisconnected(t *testing.T) {
	r := NewRegistry()
	r.Update([]model.Source{connected("a"), connected("b")})
	require.NoError(t, r.Select("a"))

	ch := r.Update([]model.Source{connected("b")})

	assert := assert.New(t)
	assert.True(ch.Changed)
	assert.Equal([]string{"a"}, ch.Lost)
	assert.True(ch.Deselected)
	assert.Equal("", r.Selected())
	assert.Equal([]model.Source{connected("b")}, r.Connected())

	all := r.All()
	assert.Len(all, 2)
	assert.Equal(model.Disconnected, all[0].State)
}

func TestUpdateUnchanged(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.Update([]model.Source{connected("a")}).Changed)
	assert.False(t, r.Update([]model.Source{connected("a")}).Changed)
}

func TestSelectUnknown(t *testing.T) {
	r := NewRegistry()
	err := r.Select("ghost")
	assert.ErrorIs(t, err, ErrUnknownSource)
	assert.NoError(t, r.Select(""))
}

func TestReconnectKeepsOrder(t *testing.T) {
	r := NewRegistry()
	r.Update([]model.Source{connected("a"), connected("b")})
	r.Update([]model.Source{connected("b")})
	r.Update([]model.Source{connected("b"), connected("a")})

	conn := r.Connected()
	require.Len(t, conn, 2)
	assert.Equal(t, "a", conn[0].ID)
}

func TestGet(t *testing.T) {
	r := NewRegistry()
	r.Update([]model.Source{connected("a")})
	r.Update(nil)

	src, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, model.Disconnected, src.State)

	_, ok = r.Get("b")
	assert.False(t, ok)
}
