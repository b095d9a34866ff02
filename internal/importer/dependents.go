package importer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"expertimport/internal/journal"
	"expertimport/internal/mockdata"
	"expertimport/internal/sheet"
	"expertimport/internal/strapi"
)

// createDependents attaches the bundle's properties and timeline posts to the
// consultant. Natural keys get a _{documentId} suffix so bundles can be
// reused across consultants; timeline posts resolve property_uid against
// the properties created here. Natural keys present in done were created by
// an earlier, unfinished run and are reused instead of created again.
func (imp *Importer) createDependents(ctx context.Context, row sheet.Row, owner strapi.Ref, bundle mockdata.Bundle, done map[string]int, w *warner) error {
	uidToID := make(map[string]int, len(bundle.Properties))

	for _, tmpl := range bundle.Properties {
		origUID := tmpl.String("property_uid")
		uid := origUID + "_" + owner.DocumentID
		if id, ok := done[uid]; ok {
			w.log.Debug("property already created", zap.Int("id", id), zap.String("property_uid", uid))
			if origUID != "" {
				uidToID[origUID] = id
			}
			continue
		}

		p := tmpl.Clone()
		p["owner"] = owner.ID

		imageURLs := p["images"]
		delete(p, "images")
		if ids := imp.uploadAll(ctx, row, imageURLs, w); len(ids) > 0 {
			p["media_urls"] = ids
		}

		joinList(p, "roles")
		joinList(p, "tags")
		p["property_uid"] = uid

		created, err := imp.Client.CreateEntry(ctx, strapi.Properties, p)
		if err != nil {
			return fmt.Errorf("creating property %s: %w", origUID, err)
		}
		w.res.Properties++
		w.log.Debug("property created", zap.Int("id", created.ID), zap.String("property_uid", uid))

		if err := imp.Journal.Record(ctx, journal.Step{
			RunID: imp.Options.RunID, Row: row.Number, Kind: journal.KindProperty,
			ProfileDocumentID: owner.DocumentID, RemoteID: created.ID, RemoteDocumentID: created.DocumentID,
			NaturalKey: uid,
		}); err != nil {
			return err
		}
		if origUID != "" {
			uidToID[origUID] = created.ID
		}
	}

	for _, tmpl := range bundle.TimelinePosts {
		postID := tmpl.String("post_id") + "_" + owner.DocumentID
		if _, ok := done[postID]; ok {
			continue
		}

		p := tmpl.Clone()
		p["author"] = owner.ID
		if uid := tmpl.String("property_uid"); uid != "" {
			if id, ok := uidToID[uid]; ok {
				p["property"] = id
			}
		}
		delete(p, "person_id")
		p["post_id"] = postID

		created, err := imp.Client.CreateEntry(ctx, strapi.TimelineItems, p)
		if err != nil {
			return fmt.Errorf("creating timeline item %s: %w", tmpl.String("post_id"), err)
		}
		w.res.TimelinePosts++
		w.log.Debug("timeline item created", zap.Int("id", created.ID), zap.String("post_id", postID))

		if err := imp.Journal.Record(ctx, journal.Step{
			RunID: imp.Options.RunID, Row: row.Number, Kind: journal.KindTimeline,
			ProfileDocumentID: owner.DocumentID, RemoteID: created.ID, RemoteDocumentID: created.DocumentID,
			NaturalKey: postID,
		}); err != nil {
			return err
		}
	}

	w.log.Info("dependents created", zap.Int("bundle", bundle.Number),
		zap.Int("properties", len(bundle.Properties)), zap.Int("timeline_posts", len(bundle.TimelinePosts)))
	return nil
}

// uploadAll uploads every URL in v (a JSON list) and returns the media ids
// that succeeded.
func (imp *Importer) uploadAll(ctx context.Context, row sheet.Row, v any, w *warner) []int {
	urls, ok := v.([]any)
	if !ok {
		return nil
	}

	var ids []int
	for _, item := range urls {
		raw, ok := item.(string)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		id, err := imp.Client.UploadURL(ctx, raw)
		if err != nil {
			w.warn("property image upload failed", zap.String("url", raw), zap.Error(err))
			continue
		}
		if p := imp.uploaded(ctx, row, id, w); p != nil {
			ids = append(ids, *p)
		}
	}
	return ids
}

// joinList flattens a list value to "a, b" as the CMS stores it as text.
func joinList(r mockdata.Record, key string) {
	list, ok := r[key].([]any)
	if !ok {
		return
	}
	parts := make([]string, 0, len(list))
	for _, item := range list {
		parts = append(parts, fmt.Sprint(item))
	}
	r[key] = strings.Join(parts, ", ")
}
