package services_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qoox/smartcsv/modules/content/domain/record"
	"github.com/qoox/smartcsv/modules/content/domain/taxonomy"
	"github.com/qoox/smartcsv/modules/content/infrastructure/persistence"
	"github.com/qoox/smartcsv/modules/content/services"
	"github.com/qoox/smartcsv/pkg/eventbus"
)

type fieldFixture struct {
	records *persistence.InmemRecordRepository
	taxos   *persistence.InmemTaxonomyRepository
	metas   *persistence.InmemMetaRepository
	fields  *services.FieldService
}

func newFieldFixture(t *testing.T, sources ...services.CustomFieldSource) *fieldFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	bus := eventbus.NewEventPublisher(logger)

	records := persistence.NewInmemRecordRepository(
		persistence.RecordTypeDef{Name: "post", SupportsThumbnail: true},
		persistence.RecordTypeDef{Name: "page"},
	)
	taxos := persistence.NewInmemTaxonomyRepository()
	metas := persistence.NewInmemMetaRepository(records, bus)

	fields := services.NewFieldService(services.FieldServiceConfig{
		RecordRepo:   records,
		TaxonomyRepo: taxos,
		MetaRepo:     metas,
		Sources:      sources,
		EventBus:     bus,
		Logger:       logger,
	})
	return &fieldFixture{records: records, taxos: taxos, metas: metas, fields: fields}
}

func groupKeys(groups []services.FieldGroup) []string {
	keys := make([]string, 0, len(groups))
	for _, g := range groups {
		keys = append(keys, g.Key)
	}
	return keys
}

func fieldKeys(g services.FieldGroup) []string {
	keys := make([]string, 0, len(g.Fields))
	for _, f := range g.Fields {
		keys = append(keys, f.Key)
	}
	return keys
}

func TestGetAvailableFields_GroupOrder(t *testing.T) {
	t.Parallel()

	f := newFieldFixture(t)
	ctx := context.Background()

	require.NoError(t, f.taxos.Register(ctx, taxonomy.Dimension{Slug: "category", Label: "Category"}, "post"))
	require.NoError(t, f.taxos.Register(ctx, taxonomy.Dimension{Slug: "tag", Label: "Tag"}, "post"))

	groups, err := f.fields.GetAvailableFields(ctx, "post")
	require.NoError(t, err)
	assert.Equal(t, []string{"basic", "thumbnail", "taxonomies", "custom_fields"}, groupKeys(groups))

	assert.Equal(t, []string{
		"id", "type", "title", "body", "excerpt", "status",
		"publishedAt", "modifiedAt", "authorLogin", "slug", "parentId", "sortOrder",
	}, fieldKeys(groups[0]))
	assert.Equal(t, []string{"featured_image", "featured_image_id"}, fieldKeys(groups[1]))
	assert.Equal(t, []string{"category", "tag"}, fieldKeys(groups[2]))
}

func TestGetAvailableFields_NoThumbnailGroup(t *testing.T) {
	t.Parallel()

	f := newFieldFixture(t)

	groups, err := f.fields.GetAvailableFields(context.Background(), "page")
	require.NoError(t, err)
	assert.Equal(t, []string{"basic", "taxonomies", "custom_fields"}, groupKeys(groups))
}

func TestGetAvailableFields_AllTypeBasicOnly(t *testing.T) {
	t.Parallel()

	f := newFieldFixture(t)

	groups, err := f.fields.GetAvailableFields(context.Background(), record.TypeAll)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "basic", groups[0].Key)
}

func TestCustomFields_FirstSourceWinsAndSorted(t *testing.T) {
	t.Parallel()

	first := services.NewStaticFieldSource(map[string]map[string]string{
		"post": {"zeta": "Zeta From First", "alpha": "Alpha"},
	})
	second := services.NewStaticFieldSource(map[string]map[string]string{
		"post": {"zeta": "Zeta From Second", "mid": "Mid"},
	})
	f := newFieldFixture(t, first, second)

	groups, err := f.fields.GetAvailableFields(context.Background(), "post")
	require.NoError(t, err)

	custom := groups[len(groups)-1]
	require.Equal(t, "custom_fields", custom.Key)
	assert.Equal(t, []services.Field{
		{Key: "alpha", Label: "Alpha"},
		{Key: "mid", Label: "Mid"},
		{Key: "zeta", Label: "Zeta From First"},
	}, custom.Fields)
}

func TestCustomFields_RegisterSourceAfterConstruction(t *testing.T) {
	t.Parallel()

	f := newFieldFixture(t)
	ctx := context.Background()

	groups, err := f.fields.GetAvailableFields(ctx, "post")
	require.NoError(t, err)
	assert.Empty(t, groups[len(groups)-1].Fields)

	f.fields.RegisterSource(services.NewStaticFieldSource(map[string]map[string]string{
		"post": {"isbn": "ISBN"},
	}))

	groups, err = f.fields.GetAvailableFields(ctx, "post")
	require.NoError(t, err)
	custom := groups[len(groups)-1]
	require.Len(t, custom.Fields, 1)
	assert.Equal(t, services.Field{Key: "isbn", Label: "ISBN"}, custom.Fields[0])
}

func TestCustomFields_ObservedKeysCacheInvalidation(t *testing.T) {
	t.Parallel()

	f := newFieldFixture(t)
	ctx := context.Background()

	rec, err := f.records.Create(ctx, &record.Record{Type: "post", Title: "One", Status: "publish"})
	require.NoError(t, err)

	groups, err := f.fields.GetAvailableFields(ctx, "post")
	require.NoError(t, err)
	assert.Empty(t, groups[len(groups)-1].Fields)

	// Setting metadata publishes a change event, which must drop the
	// cached key list for the type.
	require.NoError(t, f.metas.Set(ctx, rec.ID, "rating", "5"))

	groups, err = f.fields.GetAvailableFields(ctx, "post")
	require.NoError(t, err)
	custom := groups[len(groups)-1]
	require.Len(t, custom.Fields, 1)
	assert.Equal(t, "rating", custom.Fields[0].Key)

	require.NoError(t, f.metas.Delete(ctx, rec.ID, "rating"))

	groups, err = f.fields.GetAvailableFields(ctx, "post")
	require.NoError(t, err)
	assert.Empty(t, groups[len(groups)-1].Fields)
}
