package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qoox/smartcsv/modules/content/services"
)

func TestMapRow_ShortRowDefaultsMissingCells(t *testing.T) {
	t.Parallel()

	m := services.MapRow([]string{"type", "title", "body"}, []string{"post"})
	assert.Equal(t, []string{"type", "title", "body"}, m.Keys())
	assert.Equal(t, "post", m.Get("type"))
	assert.Equal(t, "", m.Get("title"))
	assert.Equal(t, "", m.Get("body"))
}

func TestMapRow_SkipsBlankHeadersAndTrims(t *testing.T) {
	t.Parallel()

	m := services.MapRow(
		[]string{" title ", "", "status"},
		[]string{" Spaced ", "ignored", "publish"},
	)
	assert.Equal(t, []string{"title", "status"}, m.Keys())
	assert.Equal(t, "Spaced", m.Get("title"))
	assert.Equal(t, "publish", m.Get("status"))
}

func TestMapRow_DuplicateHeaderKeepsLastValue(t *testing.T) {
	t.Parallel()

	m := services.MapRow([]string{"tag", "tag"}, []string{"first", "second"})
	assert.Equal(t, []string{"tag"}, m.Keys())
	assert.Equal(t, "second", m.Get("tag"))
}
