package ingest

import (
	"fmt"
	"time"

	"github.com/franz/yt-schema/internal/extract"
	"github.com/franz/yt-schema/internal/schema"
	"github.com/franz/yt-schema/internal/util"
	"github.com/franz/yt-schema/internal/walk"
)

func defaultLocation() *time.Location {
	loc, err := time.LoadLocation(extract.DefaultTimezone)
	if err != nil {
		util.WarnLog("Timezone %s unavailable, using UTC: %v", extract.DefaultTimezone, err)
		return time.UTC
	}
	return loc
}

func (r *run) channel(doc any) error {
	node, ok := doc.(map[string]any)
	if !ok {
		return extract.NewShapeError("$", "object", doc)
	}

	id, err := r.one(schema.Channels, node, "$", nil)
	if err != nil {
		return err
	}
	r.result.ChannelID = id
	r.result.Channel, _ = node["channel_id"].(string)
	if node["channel_id"] == nil && node["id"] == nil {
		util.WarnLog("Channel document has neither channel_id nor id; importing it again will duplicate it")
	}
	title, _ := node["channel"].(string)
	util.DebugLog("Channel %q -> channels.id=%d", title, id)

	owner := schema.Record{"channel_fk": id}
	if err := r.many(schema.ChannelThumbnails, node["thumbnails"], "$.thumbnails", owner); err != nil {
		return err
	}
	if err := r.entries(id, node); err != nil {
		return err
	}
	if err := r.version(id, node["_version"]); err != nil {
		return err
	}
	if err := r.scalars(schema.ChannelTags, "tag", node["tags"], "$.tags", owner); err != nil {
		return err
	}
	return r.scalars(schema.ChannelCategories, "category", node["categories"], "$.categories", owner)
}

func (r *run) version(channelID int64, raw any) error {
	if raw == nil {
		return nil
	}
	_, err := r.one(schema.Versions, raw, "$._version", schema.Record{"channel_fk": channelID})
	return err
}

func (r *run) entry(channelID int64, leaf walk.Entry) error {
	id, err := r.one(schema.Entries, leaf.Fields, leaf.Path, schema.Record{
		"channel_fk": channelID,
		"position":   int64(leaf.Index),
	})
	if err != nil {
		return err
	}
	title, _ := leaf.Fields["title"].(string)
	util.DebugLog("Entry %d (depth %d): %q -> entries.id=%d", leaf.Index, leaf.Depth, title, id)

	node, path := leaf.Fields, leaf.Path
	owner := schema.Record{"entry_fk": id}

	if err := r.formats(id, node["formats"], path+".formats", schema.OriginFormats, nil); err != nil {
		return err
	}
	if err := r.many(schema.Heatmaps, node["heatmap"], path+".heatmap", owner); err != nil {
		return err
	}
	downloads, key := field(node, "requested_downloads", "requested_download")
	if err := r.requestedDownloads(id, downloads, path+"."+key); err != nil {
		return err
	}
	if err := r.formats(id, node["requested_formats"], path+".requested_formats", schema.OriginRequestedFormats, nil); err != nil {
		return err
	}
	if err := r.subtitleTypes(id, node["subtitles"], path+".subtitles"); err != nil {
		return err
	}
	if err := r.many(schema.VideoThumbnails, node["thumbnails"], path+".thumbnails", owner); err != nil {
		return err
	}
	if err := r.scalars(schema.VideoTags, "tag", node["tags"], path+".tags", owner); err != nil {
		return err
	}
	sortFields, key := field(node, "_format_sort_fields", "format_sort_field", "format_sort_fields")
	if err := r.scalars(schema.FormatSortFields, "field", sortFields, path+"."+key, owner); err != nil {
		return err
	}
	if err := r.automaticCaptions(id, node["automatic_captions"], path+".automatic_captions"); err != nil {
		return err
	}
	if err := r.scalars(schema.VideoCategories, "category", node["categories"], path+".categories", owner); err != nil {
		return err
	}
	return r.chapters(id, node["chapters"], path+".chapters")
}

// formats maps a format list. Each format is inserted on its own because
// fragments and http headers reference it. downloadID links formats that
// came from a requested download.
func (r *run) formats(entryID int64, raw any, path, origin string, downloadID *int64) error {
	items, err := list(raw, path)
	if err != nil {
		return err
	}
	for i, item := range items {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		extra := schema.Record{"entry_fk": entryID, "origin": origin}
		if downloadID != nil {
			extra["requested_download_fk"] = *downloadID
		}
		id, err := r.one(schema.Formats, item, itemPath, extra)
		if err != nil {
			return err
		}

		node := item.(map[string]any)
		if err := r.many(schema.Fragments, node["fragments"], itemPath+".fragments", schema.Record{"format_fk": id}); err != nil {
			return err
		}
		if err := r.httpHeaders(id, node["http_headers"], itemPath+".http_headers"); err != nil {
			return err
		}
	}
	return nil
}

// httpHeaders maps a header object into key/value rows in key order.
func (r *run) httpHeaders(formatID int64, raw any, path string) error {
	m, keys, err := keyed(raw, path)
	if err != nil || len(keys) == 0 {
		return err
	}
	col, _ := r.table(schema.HTTPHeaders).Column("value")

	recs := make([]schema.Record, 0, len(keys))
	for _, k := range keys {
		recs = append(recs, schema.Record{
			"format_fk": formatID,
			"key":       k,
			"value":     r.im.ex.Coerce(col, m[k]),
		})
	}
	return r.insertMany(schema.HTTPHeaders, recs, path)
}

func (r *run) requestedDownloads(entryID int64, raw any, path string) error {
	items, err := list(raw, path)
	if err != nil {
		return err
	}
	for i, item := range items {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		id, err := r.one(schema.RequestedDownloads, item, itemPath, schema.Record{"entry_fk": entryID})
		if err != nil {
			return err
		}
		node := item.(map[string]any)
		if err := r.formats(entryID, node["requested_formats"], itemPath+".requested_formats", schema.OriginRequestedDownload, &id); err != nil {
			return err
		}
	}
	return nil
}

// subtitleTypes maps {language: [subtitle, ...]}: one subtitle_types row per
// language, then its subtitles.
func (r *run) subtitleTypes(entryID int64, raw any, path string) error {
	m, keys, err := keyed(raw, path)
	if err != nil {
		return err
	}
	for _, lang := range keys {
		id, err := r.insertOne(schema.SubtitleTypes, schema.Record{"entry_fk": entryID, "language": lang}, path)
		if err != nil {
			return err
		}
		if err := r.many(schema.Subtitles, m[lang], fmt.Sprintf("%s[%q]", path, lang), schema.Record{"subtitle_type_fk": id}); err != nil {
			return err
		}
	}
	return nil
}

// automaticCaptions mirrors subtitleTypes for machine generated captions.
func (r *run) automaticCaptions(entryID int64, raw any, path string) error {
	m, keys, err := keyed(raw, path)
	if err != nil {
		return err
	}
	for _, lang := range keys {
		id, err := r.insertOne(schema.AutomaticCaptions, schema.Record{"entry_fk": entryID, "language": lang}, path)
		if err != nil {
			return err
		}
		if err := r.many(schema.Captions, m[lang], fmt.Sprintf("%s[%q]", path, lang), schema.Record{"automatic_caption_fk": id}); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) chapters(entryID int64, raw any, path string) error {
	items, err := list(raw, path)
	if err != nil {
		return err
	}
	for i, item := range items {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		id, err := r.one(schema.Chapters, item, itemPath, schema.Record{"entry_fk": entryID})
		if err != nil {
			return err
		}
		node := item.(map[string]any)
		if err := r.many(schema.ChapterFragments, node["fragments"], itemPath+".fragments", schema.Record{"chapter_fk": id}); err != nil {
			return err
		}
	}
	return nil
}
