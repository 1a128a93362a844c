// Package materialize turns staged records into repository processes.
package materialize

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"oepma/internal/assets"
	"oepma/internal/config"
	"oepma/internal/logging"
	"oepma/internal/repository"
	"oepma/internal/staging"
)

// AssetResolver finds the asset file for a shelfmark.
type AssetResolver interface {
	Resolve(shelfmark string) (assets.Match, bool)
}

// Materializer creates one repository process per staged file.
type Materializer struct {
	cfg      *config.Config
	creator  repository.Creator
	resolver AssetResolver
	logger   *slog.Logger
}

// Result describes one materialized record.
type Result struct {
	ProcessName string
	Template    string
	Media       *repository.Media
	Artifact    repository.Artifact
	DonePath    string
}

// New returns a Materializer. resolver may be nil, in which case only the
// path recorded at staging time is considered.
func New(cfg *config.Config, creator repository.Creator, resolver AssetResolver, logger *slog.Logger) *Materializer {
	return &Materializer{
		cfg:      cfg,
		creator:  creator,
		resolver: resolver,
		logger:   logging.NewComponentLogger(logger, "materialize"),
	}
}

// Process materializes the staged file at path. On success the file is moved
// into the success directory; on any error it stays in place.
func (m *Materializer) Process(ctx context.Context, path string) (Result, error) {
	rec, err := staging.Read(path)
	if err != nil {
		return Result{ProcessName: strings.TrimSuffix(filepath.Base(path), ".xml")}, err
	}
	result := Result{ProcessName: rec.ProcessName}
	result.Media = m.media(rec)
	req := BuildRequest(m.cfg, rec, result.Media)
	result.Template = req.Template

	artifact, err := m.creator.Create(ctx, req)
	if err != nil {
		return result, fmt.Errorf("create process %s: %w", rec.ProcessName, err)
	}
	result.Artifact = artifact

	done, err := staging.MarkDone(path)
	if err != nil {
		return result, err
	}
	result.DonePath = done

	m.logger.Info("materialized record",
		logging.String(logging.FieldProcessName, rec.ProcessName),
		logging.String("template", req.Template),
		logging.Int64("process_id", artifact.ID),
		logging.Bool("media", result.Media != nil),
		logging.String(logging.FieldEventType, "record_materialized"),
	)
	return result, nil
}

// media prefers the file found at staging time and falls back to a fresh
// lookup, since scans may arrive after staging.
func (m *Materializer) media(rec *staging.Record) *repository.Media {
	if rec.HasMedia() && assets.Readable(rec.FilePath) {
		return &repository.Media{Name: rec.FileName, Path: rec.FilePath}
	}
	if m.resolver == nil {
		return nil
	}
	match, ok := m.resolver.Resolve(rec.Shelfmark)
	if !ok {
		return nil
	}
	m.logger.Debug("asset resolved at materialization",
		logging.String(logging.FieldProcessName, rec.ProcessName),
		logging.String("path", match.Path),
	)
	return &repository.Media{Name: match.Name, Path: match.Path}
}

// BuildRequest maps a staged record onto repository fields using the
// configured metadata names. Blank values are omitted.
func BuildRequest(cfg *config.Config, rec *staging.Record, media *repository.Media) repository.Request {
	md := cfg.Metadata
	req := repository.Request{
		Template:        cfg.Workflow.NoMediaTemplate,
		PublicationType: cfg.Workflow.PublicationType,
		Title:           rec.ProcessName,
		Media:           media,
	}

	fileName, filePath := rec.FileName, rec.FilePath
	if media != nil {
		req.Template = cfg.Workflow.MediaTemplate
		fileName, filePath = media.Name, media.Path
	}

	add := func(name, value string) {
		if value = strings.TrimSpace(value); value != "" {
			req.Metadata = append(req.Metadata, repository.Field{Name: name, Value: value})
		}
	}
	add(md.Key, rec.Key)
	add(md.Place, rec.Place)
	add(md.Country, rec.Country)
	add(md.Date, rec.Date)
	add(md.Title, rec.Title)
	add(md.Shelfmark, rec.Shelfmark)
	add(md.Document, rec.DocumentRef)
	add(md.Notes, rec.Notes)
	add(md.FileName, fileName)
	add(md.FilePath, filePath)
	add(md.Collection, cfg.Workflow.Collection)
	add(md.CatalogID, rec.ProcessName)

	for _, prio := range rec.Priorities {
		group := repository.Group{Type: md.Priority}
		if c := strings.TrimSpace(prio.Country); c != "" {
			group.Fields = append(group.Fields, repository.Field{Name: md.PriorityCountry, Value: c})
		}
		if d := strings.TrimSpace(prio.Date); d != "" {
			group.Fields = append(group.Fields, repository.Field{Name: md.PriorityDate, Value: d})
		}
		if len(group.Fields) > 0 {
			req.Groups = append(req.Groups, group)
		}
	}
	for _, person := range rec.Persons {
		req.Persons = append(req.Persons, repository.Person{
			Role:      md.FullName,
			FirstName: person.FirstName,
			LastName:  person.LastName,
		})
	}
	return req
}
