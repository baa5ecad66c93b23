package schema

// Table names.
const (
	Channels           = "channels"
	ChannelThumbnails  = "channel_thumbnails"
	ChannelTags        = "channel_tags"
	ChannelCategories  = "channel_categories"
	Versions           = "versions"
	Entries            = "entries"
	RequestedDownloads = "requested_downloads"
	Formats            = "formats"
	Fragments          = "fragments"
	HTTPHeaders        = "http_headers"
	Heatmaps           = "heatmaps"
	SubtitleTypes      = "subtitle_types"
	Subtitles          = "subtitles"
	AutomaticCaptions  = "automatic_captions"
	Captions           = "captions"
	VideoThumbnails    = "video_thumbnails"
	VideoTags          = "video_tags"
	VideoCategories    = "video_categories"
	FormatSortFields   = "format_sort_fields"
	Chapters           = "chapters"
	ChapterFragments   = "chapter_fragments"
)

// Format origins stored in formats.origin.
const (
	OriginFormats           = "formats"
	OriginRequestedFormats  = "requested_formats"
	OriginRequestedDownload = "requested_download"
)

func text(name string) Column    { return Column{Name: name, Kind: Text} }
func integer(name string) Column { return Column{Name: name, Kind: Integer} }
func bigint(name string) Column  { return Column{Name: name, Kind: BigInt} }
func float(name string) Column   { return Column{Name: name, Kind: Float} }
func boolean(name string) Column { return Column{Name: name, Kind: Bool} }

func epoch(name, source string) Column {
	return Column{Name: name, Source: source, Kind: Timestamp, Transform: EpochLocal}
}

func compactDate(name, source string) Column {
	return Column{Name: name, Source: source, Kind: Timestamp, Transform: CompactDate}
}

func renamed(c Column, source string) Column {
	c.Source = source
	return c
}

func unique(c Column) Column {
	c.Unique = true
	return c
}

func thumbnailColumns() []Column {
	return []Column{
		{Name: "thumbnail_id", Alias: "id", Kind: Text},
		integer("preference"),
		text("resolution"),
		text("url"),
		integer("width"),
		integer("height"),
	}
}

func channelTable() *Table {
	return &Table{
		Name: Channels,
		Columns: []Column{
			renamed(text("type_of"), "_type"),
			text("availability"),
			text("channel"),
			bigint("channel_follower_count"),
			unique(text("channel_id")),
			text("channel_url"),
			text("description"),
			epoch("epoch", "epoch"),
			text("extractor"),
			text("extractor_key"),
			unique(renamed(text("payload_id"), "id")),
			compactDate("modified_date", "modified_date"),
			text("original_url"),
			integer("playlist_count"),
			integer("release_year"),
			text("title"),
			text("uploader"),
			text("uploader_id"),
			text("uploader_url"),
			bigint("view_count"),
			text("webpage_url"),
			text("webpage_url_basename"),
			text("webpage_url_domain"),
		},
	}
}

func entryTable() *Table {
	return &Table{
		Name:        Entries,
		Owner:       Channels,
		OwnerColumn: "channel_fk",
		Columns: []Column{
			renamed(integer("last_playlist_index"), "__last_playlist_index"),
			boolean("has_drm"),
			float("abr"),
			text("acodec"),
			integer("age_limit"),
			float("aspect_ratio"),
			integer("asr"),
			integer("audio_channels"),
			text("availability"),
			float("average_rating"),
			text("channel"),
			bigint("channel_follower_count"),
			text("channel_id"),
			text("channel_url"),
			bigint("comment_count"),
			text("description"),
			text("display_id"),
			integer("duration"),
			text("duration_string"),
			text("dynamic_range"),
			epoch("epoch", "epoch"),
			text("ext"),
			text("extractor"),
			text("extractor_key"),
			bigint("filesize"),
			text("format"),
			text("format_id"),
			text("format_note"),
			float("fps"),
			text("fulltitle"),
			integer("height"),
			renamed(text("entry_id"), "id"),
			boolean("is_live"),
			text("language"),
			bigint("like_count"),
			text("live_status"),
			integer("n_entries"),
			text("original_url"),
			boolean("playable_in_embed"),
			text("playlist"),
			{Name: "playlist_auto_number", Source: "playlist_autonumber", Alias: "playlist_auto_number", Kind: Integer},
			integer("playlist_count"),
			text("playlist_id"),
			integer("playlist_index"),
			text("playlist_title"),
			text("playlist_uploader"),
			text("playlist_uploader_id"),
			text("protocol"),
			epoch("release_timestamp", "release_timestamp"),
			integer("release_year"),
			text("resolution"),
			float("stretched_ratio"),
			float("tbr"),
			text("thumbnail"),
			epoch("timestamp", "timestamp"),
			text("title"),
			compactDate("upload_date", "upload_date"),
			text("uploader"),
			text("uploader_id"),
			text("uploader_url"),
			float("vbr"),
			text("vcodec"),
			bigint("view_count"),
			boolean("was_live"),
			text("webpage_url"),
			text("webpage_url_basename"),
			text("webpage_url_domain"),
			integer("width"),
		},
		Derived: []Column{
			{Name: "position", Kind: Integer, NotNull: true},
		},
	}
}

func formatTable() *Table {
	return &Table{
		Name:        Formats,
		Owner:       Entries,
		OwnerColumn: "entry_fk",
		Columns: []Column{
			float("abr"),
			text("acodec"),
			float("aspect_ratio"),
			text("audio_ext"),
			integer("columns"),
			integer("rows"),
			text("container"),
			text("dynamic_range"),
			text("ext"),
			bigint("filesize"),
			bigint("filesize_approx"),
			text("format"),
			text("format_id"),
			text("format_note"),
			float("fps"),
			integer("height"),
			text("language"),
			text("protocol"),
			float("quality"),
			text("resolution"),
			float("tbr"),
			text("url"),
			float("vbr"),
			text("vcodec"),
			text("video_ext"),
			integer("width"),
		},
		Derived: []Column{
			{Name: "origin", Kind: Text, NotNull: true},
			{Name: "requested_download_fk", Kind: BigInt, References: RequestedDownloads},
		},
	}
}

func requestedDownloadTable() *Table {
	return &Table{
		Name:        RequestedDownloads,
		Owner:       Entries,
		OwnerColumn: "entry_fk",
		Columns: []Column{
			{Name: "write_download_archive", Source: "__write_download_archive", Alias: "write_download_archive", Kind: Bool},
			text("filename"),
			renamed(text("filepath"), "filepath"),
			float("abr"),
			text("acodec"),
			float("aspect_ratio"),
			text("audio_ext"),
			text("ext"),
			bigint("filesize_approx"),
			text("format"),
			text("format_id"),
			text("format_note"),
			float("fps"),
			integer("height"),
			text("protocol"),
			text("resolution"),
			float("tbr"),
			float("vbr"),
			text("vcodec"),
			text("video_ext"),
			integer("width"),
		},
	}
}

var defaultRegistry = MustNew(
	channelTable(),
	&Table{Name: ChannelThumbnails, Owner: Channels, OwnerColumn: "channel_fk", Columns: thumbnailColumns()},
	&Table{Name: ChannelTags, Owner: Channels, OwnerColumn: "channel_fk", Columns: []Column{text("tag")}},
	&Table{Name: ChannelCategories, Owner: Channels, OwnerColumn: "channel_fk", Columns: []Column{text("category")}},
	&Table{
		Name: Versions, Owner: Channels, OwnerColumn: "channel_fk", OwnerUnique: true,
		Columns: []Column{
			text("current_git_head"),
			text("release_git_head"),
			text("repository"),
			text("version"),
		},
	},
	entryTable(),
	requestedDownloadTable(),
	formatTable(),
	&Table{
		Name: Fragments, Owner: Formats, OwnerColumn: "format_fk",
		Columns: []Column{text("url"), text("path"), float("duration")},
	},
	&Table{
		Name: HTTPHeaders, Owner: Formats, OwnerColumn: "format_fk",
		Columns: []Column{{Name: "key", Kind: Text, NotNull: true}, text("value")},
	},
	&Table{
		Name: Heatmaps, Owner: Entries, OwnerColumn: "entry_fk",
		Columns: []Column{float("start_time"), float("end_time"), float("value")},
	},
	&Table{
		Name: SubtitleTypes, Owner: Entries, OwnerColumn: "entry_fk",
		Derived: []Column{{Name: "language", Kind: Text, NotNull: true}},
	},
	&Table{
		Name: Subtitles, Owner: SubtitleTypes, OwnerColumn: "subtitle_type_fk",
		Columns: []Column{text("ext"), text("name"), text("protocol"), text("url")},
	},
	&Table{
		Name: AutomaticCaptions, Owner: Entries, OwnerColumn: "entry_fk",
		Derived: []Column{{Name: "language", Kind: Text, NotNull: true}},
	},
	&Table{
		Name: Captions, Owner: AutomaticCaptions, OwnerColumn: "automatic_caption_fk",
		Columns: []Column{text("ext"), text("name"), text("protocol"), text("url")},
	},
	&Table{Name: VideoThumbnails, Owner: Entries, OwnerColumn: "entry_fk", Columns: thumbnailColumns()},
	&Table{Name: VideoTags, Owner: Entries, OwnerColumn: "entry_fk", Columns: []Column{text("tag")}},
	&Table{Name: VideoCategories, Owner: Entries, OwnerColumn: "entry_fk", Columns: []Column{text("category")}},
	&Table{Name: FormatSortFields, Owner: Entries, OwnerColumn: "entry_fk", Columns: []Column{text("field")}},
	&Table{
		Name: Chapters, Owner: Entries, OwnerColumn: "entry_fk",
		Columns: []Column{float("start_time"), float("end_time"), text("title")},
	},
	&Table{
		Name: ChapterFragments, Owner: Chapters, OwnerColumn: "chapter_fk",
		Columns: []Column{text("url"), float("duration")},
	},
)

// Default returns the registry for yt-dlp channel documents.
func Default() *Registry {
	return defaultRegistry
}
