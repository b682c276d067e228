// Package content wires the record synchronization pipeline: repositories,
// the field/import/export services and the HTTP controller that fronts them.
package content

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/qoox/smartcsv/modules/content/domain/attachment"
	"github.com/qoox/smartcsv/modules/content/domain/meta"
	"github.com/qoox/smartcsv/modules/content/domain/record"
	"github.com/qoox/smartcsv/modules/content/domain/taxonomy"
	"github.com/qoox/smartcsv/modules/content/domain/user"
	"github.com/qoox/smartcsv/modules/content/infrastructure/persistence"
	"github.com/qoox/smartcsv/modules/content/services"
	"github.com/qoox/smartcsv/pkg/configuration"
	"github.com/qoox/smartcsv/pkg/eventbus"
)

// Module bundles everything a caller needs to serve or script the
// pipeline. Close releases the database pool when one was opened.
type Module struct {
	Records     record.Repository
	Taxonomies  taxonomy.Repository
	Metas       meta.Repository
	Users       user.Repository
	Attachments attachment.Resolver

	Fields   *services.FieldService
	Resolver *services.FieldResolver
	Importer *services.ImportService
	Exporter *services.ExportService
	Batch    *services.BatchService

	pool *pgxpool.Pool
}

func Load(ctx context.Context, conf *configuration.Configuration) (*Module, error) {
	logger := conf.Logger()
	bus := eventbus.NewEventPublisher(logger)

	m := &Module{}
	switch conf.Storage {
	case "postgres":
		pool, err := pgxpool.New(ctx, conf.Database.ConnectionString())
		if err != nil {
			return nil, errors.Wrap(err, "failed to create database pool")
		}
		m.pool = pool
		m.Records = persistence.NewPgRecordRepository(pool)
		m.Taxonomies = persistence.NewPgTaxonomyRepository(pool)
		m.Metas = persistence.NewPgMetaRepository(pool, bus)
		m.Users = persistence.NewPgUserRepository(pool)
		m.Attachments = persistence.NewPgAttachmentResolver(pool)
	default:
		records := persistence.NewInmemRecordRepository(
			persistence.RecordTypeDef{Name: "post", SupportsThumbnail: true},
			persistence.RecordTypeDef{Name: "page"},
		)
		m.Records = records
		m.Taxonomies = persistence.NewInmemTaxonomyRepository()
		m.Metas = persistence.NewInmemMetaRepository(records, bus)
		m.Users = persistence.NewInmemUserRepository()
		m.Attachments = persistence.NewInmemAttachmentResolver(nil)
	}

	m.Fields = services.NewFieldService(services.FieldServiceConfig{
		RecordRepo:   m.Records,
		TaxonomyRepo: m.Taxonomies,
		MetaRepo:     m.Metas,
		EventBus:     bus,
		Logger:       logger,
	})
	m.Resolver = services.NewFieldResolver(services.FieldResolverConfig{
		RecordRepo:   m.Records,
		TaxonomyRepo: m.Taxonomies,
		MetaRepo:     m.Metas,
		UserRepo:     m.Users,
		Attachments:  m.Attachments,
	})
	m.Importer = services.NewImportService(services.ImportServiceConfig{
		RecordRepo:   m.Records,
		TaxonomyRepo: m.Taxonomies,
		MetaRepo:     m.Metas,
		UserRepo:     m.Users,
		Attachments:  m.Attachments,
		Logger:       logger,
	})
	m.Exporter = services.NewExportService(services.ExportServiceConfig{
		RecordRepo:   m.Records,
		FieldService: m.Fields,
		Resolver:     m.Resolver,
		ExportDir:    conf.ExportDir,
		Keep:         conf.ExportKeep,
		Logger:       logger,
	})
	m.Batch = services.NewBatchService(services.BatchServiceConfig{
		Importer:     m.Importer,
		StagingDir:   conf.StagingDir,
		DefaultChunk: conf.DefaultChunk,
		Logger:       logger,
	})
	return m, nil
}

func (m *Module) Close() {
	if m.pool != nil {
		m.pool.Close()
	}
}
