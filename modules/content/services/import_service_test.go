package services_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qoox/smartcsv/modules/content/domain/record"
	"github.com/qoox/smartcsv/modules/content/domain/taxonomy"
	"github.com/qoox/smartcsv/modules/content/domain/user"
	"github.com/qoox/smartcsv/modules/content/infrastructure/persistence"
	"github.com/qoox/smartcsv/modules/content/services"
	"github.com/qoox/smartcsv/pkg/eventbus"
)

type importFixture struct {
	records  *persistence.InmemRecordRepository
	taxos    *persistence.InmemTaxonomyRepository
	metas    *persistence.InmemMetaRepository
	users    *persistence.InmemUserRepository
	assets   *persistence.InmemAttachmentResolver
	importer *services.ImportService
}

func newImportFixture(t *testing.T) *importFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	records := persistence.NewInmemRecordRepository(
		persistence.RecordTypeDef{Name: "post", SupportsThumbnail: true},
		persistence.RecordTypeDef{Name: "page"},
	)
	taxos := persistence.NewInmemTaxonomyRepository()
	metas := persistence.NewInmemMetaRepository(records, eventbus.NewEventPublisher(logger))
	users := persistence.NewInmemUserRepository(user.User{ID: 7, Login: "editor"})
	assets := persistence.NewInmemAttachmentResolver(map[int64]string{
		42: "https://cdn.example.com/cover.jpg",
	})

	importer := services.NewImportService(services.ImportServiceConfig{
		RecordRepo:   records,
		TaxonomyRepo: taxos,
		MetaRepo:     metas,
		UserRepo:     users,
		Attachments:  assets,
		Logger:       logger,
	})
	return &importFixture{
		records:  records,
		taxos:    taxos,
		metas:    metas,
		users:    users,
		assets:   assets,
		importer: importer,
	}
}

func row(pairs ...string) *services.RowMap {
	header := make([]string, 0, len(pairs)/2)
	values := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		header = append(header, pairs[i])
		values = append(values, pairs[i+1])
	}
	return services.MapRow(header, values)
}

func TestProcessRow_EndToEndScenario(t *testing.T) {
	t.Parallel()

	f := newImportFixture(t)
	ctx := context.Background()

	existing, err := f.records.Create(ctx, &record.Record{Type: "article", Title: "Old", Status: "publish"})
	require.NoError(t, err)

	action, err := f.importer.ProcessRow(ctx, row(
		"id", "1", "type", "post", "title", "Hello, World", "body", "Body text", "status", "publish",
	), services.ModeUpdateOrCreate)
	require.NoError(t, err)
	assert.Equal(t, services.ActionUpdated, action)

	updated, err := f.records.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "post", updated.Type)
	assert.Equal(t, "Hello, World", updated.Title)
	assert.Equal(t, "Body text", updated.Body)

	action, err = f.importer.ProcessRow(ctx, row(
		"id", "", "type", "page", "title", "About", "body", "desc", "status", "draft",
	), services.ModeUpdateOrCreate)
	require.NoError(t, err)
	assert.Equal(t, services.ActionCreated, action)

	created, err := f.records.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "page", created.Type)
	assert.Equal(t, "About", created.Title)
	assert.Equal(t, "draft", created.Status)
}

func TestProcessRow_TitleAndStatusDefaults(t *testing.T) {
	t.Parallel()

	f := newImportFixture(t)
	ctx := context.Background()

	action, err := f.importer.ProcessRow(ctx, row("type", "post", "body", "text"), services.ModeUpdateOrCreate)
	require.NoError(t, err)
	require.Equal(t, services.ActionCreated, action)

	rec, err := f.records.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "notitle", rec.Title)
	assert.Equal(t, record.StatusDraft, rec.Status)
}

func TestProcessRow_CreateOnlyIgnoresID(t *testing.T) {
	t.Parallel()

	f := newImportFixture(t)
	ctx := context.Background()

	_, err := f.records.Create(ctx, &record.Record{Type: "post", Title: "Original", Status: "publish"})
	require.NoError(t, err)

	action, err := f.importer.ProcessRow(ctx, row("id", "1", "title", "Copy"), services.ModeCreateOnly)
	require.NoError(t, err)
	assert.Equal(t, services.ActionCreated, action)

	original, err := f.records.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Original", original.Title)

	copied, err := f.records.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Copy", copied.Title)
}

func TestProcessRow_NonNumericIDCreates(t *testing.T) {
	t.Parallel()

	f := newImportFixture(t)
	ctx := context.Background()

	action, err := f.importer.ProcessRow(ctx, row("id", "abc", "title", "New"), services.ModeUpdateOrCreate)
	require.NoError(t, err)
	assert.Equal(t, services.ActionCreated, action)
}

func TestProcessRow_IntegerCoercion(t *testing.T) {
	t.Parallel()

	f := newImportFixture(t)
	ctx := context.Background()

	_, err := f.importer.ProcessRow(ctx, row(
		"title", "Coerced", "parentId", "nope", "sortOrder", "5",
	), services.ModeUpdateOrCreate)
	require.NoError(t, err)

	rec, err := f.records.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.ParentID)
	assert.Equal(t, 5, rec.SortOrder)
}

func TestProcessRow_AuthorResolution(t *testing.T) {
	t.Parallel()

	f := newImportFixture(t)
	ctx := context.Background()

	_, err := f.importer.ProcessRow(ctx, row("title", "Authored", "authorLogin", "editor"), services.ModeUpdateOrCreate)
	require.NoError(t, err)

	rec, err := f.records.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.AuthorID)

	_, err = f.importer.ProcessRow(ctx, row("title", "Ghost", "authorLogin", "nobody"), services.ModeUpdateOrCreate)
	require.NoError(t, err)

	rec, err = f.records.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.AuthorID)
}

func TestProcessRow_CategorizationSplitDeduplicates(t *testing.T) {
	t.Parallel()

	f := newImportFixture(t)
	ctx := context.Background()

	_, err := f.importer.ProcessRow(ctx, row("title", "Tagged", "category", "a/b/b"), services.ModeUpdateOrCreate)
	require.NoError(t, err)

	slugs, err := f.taxos.RecordTermSlugs(ctx, 1, "category")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, slugs)
}

func TestProcessRow_ClassifierCreatesDimensionNotMetadata(t *testing.T) {
	t.Parallel()

	f := newImportFixture(t)
	ctx := context.Background()

	_, err := f.importer.ProcessRow(ctx, row("title", "Classified", "color", "x/y"), services.ModeUpdateOrCreate)
	require.NoError(t, err)

	exists, err := f.taxos.Exists(ctx, "color")
	require.NoError(t, err)
	assert.True(t, exists)

	slugs, err := f.taxos.RecordTermSlugs(ctx, 1, "color")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, slugs)

	values, err := f.metas.Values(ctx, 1)
	require.NoError(t, err)
	assert.NotContains(t, values, "color")
}

func TestProcessRow_KeywordColumnWithoutSeparator(t *testing.T) {
	t.Parallel()

	f := newImportFixture(t)
	ctx := context.Background()

	_, err := f.importer.ProcessRow(ctx, row("title", "Kw", "product_line", "widgets"), services.ModeUpdateOrCreate)
	require.NoError(t, err)

	exists, err := f.taxos.Exists(ctx, "product_line")
	require.NoError(t, err)
	assert.True(t, exists)

	slugs, err := f.taxos.RecordTermSlugs(ctx, 1, "product_line")
	require.NoError(t, err)
	assert.Equal(t, []string{"widgets"}, slugs)
}

func TestProcessRow_TermReplaceNotMerge(t *testing.T) {
	t.Parallel()

	f := newImportFixture(t)
	ctx := context.Background()

	_, err := f.importer.ProcessRow(ctx, row("title", "First", "category", "a/b"), services.ModeUpdateOrCreate)
	require.NoError(t, err)

	_, err = f.importer.ProcessRow(ctx, row("id", "1", "title", "First", "category", "c"), services.ModeUpdateOrCreate)
	require.NoError(t, err)

	slugs, err := f.taxos.RecordTermSlugs(ctx, 1, "category")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, slugs)
}

func TestProcessRow_MetadataJSONRoundTrip(t *testing.T) {
	t.Parallel()

	f := newImportFixture(t)
	ctx := context.Background()

	_, err := f.importer.ProcessRow(ctx, row(
		"title", "Meta",
		"specs", `{"weight":2,"sizes":["s","m"]}`,
		"note", "plain text",
	), services.ModeUpdateOrCreate)
	require.NoError(t, err)

	specs, err := f.metas.Get(ctx, 1, "specs")
	require.NoError(t, err)
	decoded, ok := specs.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), decoded["weight"])

	note, err := f.metas.Get(ctx, 1, "note")
	require.NoError(t, err)
	assert.Equal(t, "plain text", note)
}

func TestProcessRow_ThumbnailIDPrecedesURL(t *testing.T) {
	t.Parallel()

	f := newImportFixture(t)
	ctx := context.Background()

	_, err := f.importer.ProcessRow(ctx, row(
		"title", "Pic",
		"featured_image", "https://cdn.example.com/cover.jpg",
		"featured_image_id", "42",
	), services.ModeUpdateOrCreate)
	require.NoError(t, err)

	assetID, err := f.records.ThumbnailAssetID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(42), assetID)
}

func TestProcessRow_ThumbnailURLResolved(t *testing.T) {
	t.Parallel()

	f := newImportFixture(t)
	ctx := context.Background()

	_, err := f.importer.ProcessRow(ctx, row(
		"title", "Pic", "featured_image", "https://cdn.example.com/cover.jpg",
	), services.ModeUpdateOrCreate)
	require.NoError(t, err)

	assetID, err := f.records.ThumbnailAssetID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(42), assetID)
}

func TestProcessRow_KnownDimensionWithoutHeuristicMatch(t *testing.T) {
	t.Parallel()

	f := newImportFixture(t)
	ctx := context.Background()

	require.NoError(t, f.taxos.Register(ctx, taxonomy.Dimension{Slug: "season", Label: "Season"}, "post"))

	_, err := f.importer.ProcessRow(ctx, row("title", "Dim", "season", "winter"), services.ModeUpdateOrCreate)
	require.NoError(t, err)

	slugs, err := f.taxos.RecordTermSlugs(ctx, 1, "season")
	require.NoError(t, err)
	assert.Equal(t, []string{"winter"}, slugs)
}

func TestParseImportMode(t *testing.T) {
	t.Parallel()

	mode, err := services.ParseImportMode("")
	require.NoError(t, err)
	assert.Equal(t, services.ModeUpdateOrCreate, mode)

	mode, err = services.ParseImportMode("create_only")
	require.NoError(t, err)
	assert.Equal(t, services.ModeCreateOnly, mode)

	_, err = services.ParseImportMode("upsert")
	require.Error(t, err)
}
