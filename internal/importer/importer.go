// Package importer turns spreadsheet rows into consultant profiles and their
// dependent property and timeline records.
package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"expertimport/internal/config"
	"expertimport/internal/images"
	"expertimport/internal/journal"
	"expertimport/internal/mockdata"
	"expertimport/internal/sheet"
	"expertimport/internal/strapi"
	"expertimport/internal/synth"
)

// CMS is the subset of the Strapi client the importer calls.
type CMS interface {
	FindConsultant(ctx context.Context, lookup strapi.Lookup) (*strapi.Ref, error)
	CreateConsultant(ctx context.Context, payload strapi.Consultant) (strapi.Ref, error)
	UpdateConsultant(ctx context.Context, ref strapi.Ref, payload strapi.Consultant) (strapi.Ref, error)
	CreateEntry(ctx context.Context, resource string, payload any) (strapi.Ref, error)
	UploadFile(ctx context.Context, path string) (int, error)
	UploadURL(ctx context.Context, rawURL string) (int, error)
}

type ImageResolver interface {
	Resolve(firstName, lastName string) (images.Match, bool)
}

// LinkedInFinder looks up a real profile URL. "" with a nil error means
// nothing was found.
type LinkedInFinder interface {
	FindProfileURL(ctx context.Context, firstName, lastName, company string) (string, error)
}

type Journal interface {
	Record(ctx context.Context, step journal.Step) error
	HasDependents(ctx context.Context, profileDocumentID string) (bool, error)
	Steps(ctx context.Context, profileDocumentID string) ([]journal.Step, error)
}

// Options contains import configuration.
type Options struct {
	DryRun     bool   // Build and log payloads without calling the CMS
	Dependents string // config.DependentsAlways or config.DependentsOnce
	RunID      string // Stamped on journal steps
}

// Action is what happened to a row.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
	ActionPlanned Action = "planned"
)

// RowResult is the outcome of one row.
type RowResult struct {
	Row        int
	Name       string
	Action     Action
	ID         int
	DocumentID string
}

// Result contains statistics about the import.
type Result struct {
	Created        int // New consultants
	Updated        int // Existing consultants overwritten
	Skipped        int // Rows without a usable name
	Planned        int // Rows built in dry-run mode
	Properties     int // Property records created
	TimelinePosts  int // Timeline items created
	ImagesUploaded int // Media library uploads
	Warnings       int // Fields dropped or degraded
	Rows           []RowResult
}

// Importer processes rows one at a time. Any CMS error stops the run.
type Importer struct {
	Client   CMS
	Images   ImageResolver
	LinkedIn LinkedInFinder
	Synth    *synth.Synthesizer
	Bundles  []mockdata.Bundle
	Journal  Journal
	Logger   *zap.Logger
	Options  Options
}

// Run imports rows in order and returns what it did, including on error.
func (imp *Importer) Run(ctx context.Context, rows []sheet.Row) (*Result, error) {
	if imp.Client == nil && !imp.Options.DryRun {
		return nil, fmt.Errorf("importer client is nil")
	}
	if len(imp.Bundles) == 0 {
		return nil, fmt.Errorf("no mock data bundles loaded")
	}
	if imp.Logger == nil {
		imp.Logger = zap.NewNop()
	}
	if imp.Synth == nil {
		imp.Synth = synth.New(nil)
	}
	if imp.Journal == nil {
		imp.Journal = nopJournal{}
	}
	if imp.Options.Dependents == "" {
		imp.Options.Dependents = config.DependentsAlways
	}

	res := &Result{}
	imp.Logger.Info("import starting", zap.Int("rows", len(rows)), zap.Bool("dry_run", imp.Options.DryRun),
		zap.String("dependents", imp.Options.Dependents), zap.String("run_id", imp.Options.RunID))

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rr, err := imp.importRow(ctx, row, res)
		if err != nil {
			return res, fmt.Errorf("row %d: %w", row.Number, err)
		}
		res.Rows = append(res.Rows, rr)
	}

	imp.Logger.Info("import finished",
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
		zap.Int("planned", res.Planned),
		zap.Int("properties", res.Properties),
		zap.Int("timeline_posts", res.TimelinePosts),
		zap.Int("images", res.ImagesUploaded),
		zap.Int("warnings", res.Warnings),
	)
	return res, nil
}

func (imp *Importer) importRow(ctx context.Context, row sheet.Row, res *Result) (RowResult, error) {
	first, last := row.Get(sheet.ColFirstName), row.Get(sheet.ColLastName)
	rr := RowResult{Row: row.Number, Name: first + " " + last}
	if first == "" || last == "" {
		imp.Logger.Warn("missing first or last name; skipping", zap.Int("row", row.Number))
		res.Skipped++
		rr.Action = ActionSkipped
		return rr, nil
	}

	log := imp.Logger.With(zap.Int("row", row.Number), zap.String("name", rr.Name))
	w := &warner{log: log, res: res}

	bundle := imp.Bundles[imp.Synth.BundleNumber(len(imp.Bundles))-1]
	log.Debug("mock bundle chosen", zap.Int("bundle", bundle.Number),
		zap.Int("properties", len(bundle.Properties)), zap.Int("timeline_posts", len(bundle.TimelinePosts)))

	payload, lookup := imp.buildConsultant(ctx, row, first, last, w)
	payload.ProfileImage = imp.profileImage(ctx, row, first, last, w)
	for _, field := range longFields(payload) {
		w.warn("field exceeds 255 characters", zap.String("field", field))
	}

	if imp.Options.DryRun {
		log.Info("dry run: would upsert consultant", zap.Any("payload", payload),
			zap.Int("bundle", bundle.Number))
		res.Planned++
		rr.Action = ActionPlanned
		return rr, nil
	}

	ref, action, err := imp.upsert(ctx, row, lookup, payload, log)
	if err != nil {
		return rr, err
	}
	rr.Action, rr.ID, rr.DocumentID = action, ref.ID, ref.DocumentID

	var done map[string]int
	if imp.Options.Dependents == config.DependentsOnce {
		has, err := imp.Journal.HasDependents(ctx, ref.DocumentID)
		if err != nil {
			return rr, err
		}
		if has {
			log.Info("dependents already journaled; skipping", zap.String("document_id", ref.DocumentID))
			return rr, nil
		}
		if done, err = imp.journaledDependents(ctx, ref.DocumentID); err != nil {
			return rr, err
		}
		if len(done) > 0 {
			log.Info("resuming unfinished dependents", zap.Int("journaled", len(done)))
		}
	}

	if err := imp.createDependents(ctx, row, ref, bundle, done, w); err != nil {
		return rr, err
	}
	if err := imp.Journal.Record(ctx, journal.Step{
		RunID: imp.Options.RunID, Row: row.Number, Kind: journal.KindDependentsDone,
		ProfileDocumentID: ref.DocumentID, RemoteID: ref.ID,
	}); err != nil {
		return rr, err
	}
	return rr, nil
}

// journaledDependents maps the natural keys of the profile's journaled
// properties and timeline items to their remote ids.
func (imp *Importer) journaledDependents(ctx context.Context, profileDocumentID string) (map[string]int, error) {
	steps, err := imp.Journal.Steps(ctx, profileDocumentID)
	if err != nil {
		return nil, err
	}
	done := make(map[string]int)
	for _, st := range steps {
		if (st.Kind == journal.KindProperty || st.Kind == journal.KindTimeline) && st.NaturalKey != "" {
			done[st.NaturalKey] = st.RemoteID
		}
	}
	return done, nil
}

// upsert updates the consultant matching lookup or creates a new one.
func (imp *Importer) upsert(ctx context.Context, row sheet.Row, lookup strapi.Lookup, payload strapi.Consultant, log *zap.Logger) (strapi.Ref, Action, error) {
	existing, err := imp.Client.FindConsultant(ctx, lookup)
	if err != nil {
		return strapi.Ref{}, "", fmt.Errorf("looking up consultant: %w", err)
	}

	var (
		ref    strapi.Ref
		action Action
		kind   journal.Kind
	)
	if existing != nil {
		log.Info("updating existing consultant", zap.String("document_id", existing.DocumentID))
		ref, err = imp.Client.UpdateConsultant(ctx, *existing, payload)
		if err != nil {
			return strapi.Ref{}, "", fmt.Errorf("updating consultant %s: %w", existing.DocumentID, err)
		}
		if ref.ID == 0 {
			ref.ID = existing.ID
		}
		action, kind = ActionUpdated, journal.KindProfileUpdated
	} else {
		log.Info("creating new consultant")
		ref, err = imp.Client.CreateConsultant(ctx, payload)
		if err != nil {
			return strapi.Ref{}, "", fmt.Errorf("creating consultant: %w", err)
		}
		action, kind = ActionCreated, journal.KindProfileCreated
	}

	if err := imp.Journal.Record(ctx, journal.Step{
		RunID:             imp.Options.RunID,
		Row:               row.Number,
		Kind:              kind,
		ProfileDocumentID: ref.DocumentID,
		RemoteID:          ref.ID,
		RemoteDocumentID:  ref.DocumentID,
	}); err != nil {
		return strapi.Ref{}, "", err
	}
	return ref, action, nil
}

// profileImage uploads the local match for the name, else the row's image
// URL. Upload failures only cost the image.
func (imp *Importer) profileImage(ctx context.Context, row sheet.Row, first, last string, w *warner) *int {
	if imp.Images != nil {
		if m, ok := imp.Images.Resolve(first, last); ok {
			w.log.Info("local image matched", zap.String("path", m.Path), zap.String("match", string(m.Kind)))
			if imp.Options.DryRun {
				return nil
			}
			id, err := imp.Client.UploadFile(ctx, m.Path)
			if err != nil {
				w.warn("profile image upload failed", zap.String("path", m.Path), zap.Error(err))
				return nil
			}
			return imp.uploaded(ctx, row, id, w)
		}
	}

	raw := row.FirstOf(sheet.ColProfileImage, sheet.ColProfileImageURL)
	if raw == "" || imp.Options.DryRun {
		return nil
	}
	id, err := imp.Client.UploadURL(ctx, raw)
	if err != nil {
		w.warn("profile image upload failed", zap.String("url", raw), zap.Error(err))
		return nil
	}
	return imp.uploaded(ctx, row, id, w)
}

func (imp *Importer) uploaded(ctx context.Context, row sheet.Row, id int, w *warner) *int {
	w.res.ImagesUploaded++
	if err := imp.Journal.Record(ctx, journal.Step{
		RunID: imp.Options.RunID, Row: row.Number, Kind: journal.KindUpload, RemoteID: id,
	}); err != nil {
		w.warn("journal write failed", zap.Error(err))
	}
	return &id
}

// warner logs a degraded field and counts it.
type warner struct {
	log *zap.Logger
	res *Result
}

func (w *warner) warn(msg string, fields ...zap.Field) {
	w.res.Warnings++
	w.log.Warn(msg, fields...)
}

type nopJournal struct{}

func (nopJournal) Record(context.Context, journal.Step) error { return nil }

func (nopJournal) HasDependents(context.Context, string) (bool, error) { return false, nil }

func (nopJournal) Steps(context.Context, string) ([]journal.Step, error) { return nil, nil }
